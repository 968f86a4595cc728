// Package cmd implements the CLI command structure for taskforge.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"taskforge/app"
	"taskforge/config"
	"taskforge/logging"
	"taskforge/model"
	"taskforge/store"
	"taskforge/tui"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Run executes the taskforge CLI.
func Run(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("taskforge", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		printUsage(fs, stderr)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")

	cfg, err := config.Load(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *help {
		printUsage(fs, stdout)
		return nil
	}
	if *showVersion {
		fmt.Fprintf(stdout, "taskforge %s\n", Version)
		return nil
	}

	logger := logging.New(stderr, cfg.LogLevel)

	// No subcommand (or a leading flag already consumed) means interactive.
	subcommand := "menu"
	remaining := fs.Args()
	if len(remaining) > 0 && !strings.HasPrefix(remaining[0], "-") {
		subcommand = remaining[0]
		remaining = remaining[1:]
	}

	svc, startupStatus, err := openService(cfg)
	if err != nil {
		if errors.Is(err, store.ErrCorruptData) {
			logger.Error("data file is corrupt; rerun with -recover to restore from backups", "file", cfg.DataFile)
		}
		return err
	}
	if startupStatus != "" {
		logger.Warn(startupStatus)
	}
	logger.Debug("loaded task collection", "file", cfg.DataFile, "tasks", len(svc.Tasks()))

	switch subcommand {
	case "menu":
		return tui.Run(svc, startupStatus)
	case "add":
		return addCommand(svc, remaining, stdout, stderr)
	case "list":
		return listCommand(svc, remaining, stdout, stderr)
	case "update":
		return updateCommand(svc, remaining, stdout, stderr)
	case "complete":
		return completeCommand(svc, remaining, stdout)
	case "delete":
		return deleteCommand(svc, remaining, stdout)
	case "filter":
		return filterCommand(svc, remaining, stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "taskforge %s\n", Version)
		return nil
	default:
		printUsage(fs, stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

// openService builds the task manager over the configured data file. With
// -recover, a corrupt file is replaced by the newest valid backup instead of
// failing the load.
func openService(cfg *config.Config) (*app.Service, string, error) {
	fileStore := store.NewFileStore(cfg.DataFile)
	if cfg.Recover {
		tasks, status, err := fileStore.LoadWithRecovery()
		if err != nil {
			return nil, "", err
		}
		return app.NewServiceWith(fileStore, tasks), status, nil
	}
	svc, err := app.NewService(fileStore)
	if err != nil {
		return nil, "", err
	}
	return svc, "", nil
}

func addCommand(svc *app.Service, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(stderr)
	priority := fs.String("priority", "Medium", "Task priority (Low/Medium/High)")
	due := fs.String("due", "", "Due date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	title := strings.Join(fs.Args(), " ")

	task, err := svc.Add(title, *priority, *due)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, tui.RenderTable([]model.Task{task}, tableWidth))
	return nil
}

func listCommand(svc *app.Service, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	printTasks(stdout, svc.Tasks())
	return nil
}

func updateCommand(svc *app.Service, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	fs.SetOutput(stderr)
	title := fs.String("title", "", "New title")
	priority := fs.String("priority", "", "New priority (Low/Medium/High)")
	due := fs.String("due", "", "New due date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: taskforge update [flags] <task-id>")
	}

	fields := app.Fields{}
	if *title != "" {
		fields.Title = title
	}
	if *priority != "" {
		fields.Priority = priority
	}
	if *due != "" {
		fields.DueDate = due
	}

	task, err := svc.Update(fs.Arg(0), fields)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, tui.RenderTable([]model.Task{task}, tableWidth))
	return nil
}

func completeCommand(svc *app.Service, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: taskforge complete <task-id>")
	}
	task, err := svc.Complete(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "completed %s\n", task.ID)
	return nil
}

func deleteCommand(svc *app.Service, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return errors.New("usage: taskforge delete <task-id>")
	}
	if err := svc.Delete(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "deleted %s\n", args[0])
	return nil
}

func filterCommand(svc *app.Service, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("filter", flag.ContinueOnError)
	fs.SetOutput(stderr)
	status := fs.String("status", "", "Status filter (Pending/Completed)")
	due := fs.String("due", "", "Due window (today/week)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	criteria := model.Criteria{}
	if *status != "" {
		parsed, err := model.ParseStatus(*status)
		if err != nil {
			return err
		}
		criteria.Status = parsed
	}
	switch strings.ToLower(*due) {
	case "":
	case "today":
		criteria.Due = model.DueToday
	case "week":
		criteria.Due = model.DueThisWeek
	default:
		return fmt.Errorf("due window must be today or week, got %q", *due)
	}

	tasks, err := svc.Filter(criteria)
	if err != nil {
		return err
	}
	printTasks(stdout, tasks)
	return nil
}

const tableWidth = 110

func printTasks(w io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks available.")
		return
	}
	fmt.Fprintln(w, tui.RenderTable(tasks, tableWidth))
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "Usage: taskforge [flags] [command]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Without a command, taskforge starts the interactive menu.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  add [flags] <title>       Add a task")
	fmt.Fprintln(w, "  list                      List all tasks")
	fmt.Fprintln(w, "  update [flags] <task-id>  Update task fields")
	fmt.Fprintln(w, "  complete <task-id>        Mark a task as complete")
	fmt.Fprintln(w, "  delete <task-id>          Delete a task")
	fmt.Fprintln(w, "  filter [flags]            Filter tasks by status or due window")
	fmt.Fprintln(w, "  version                   Print the version")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Flags:")
	fs.PrintDefaults()
}
