package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"checkline/internal/app"
	"checkline/internal/config"
	"checkline/internal/domain"
	"checkline/internal/engine"
	"checkline/internal/events"
	"checkline/internal/schedule"
)

var rootCmd = &cobra.Command{
	Use:   "checkline",
	Short: "Checkline CLI",
	Long: `Checkline automates the daily check-in against the rewards service.
For each configured wallet credential it signs a login challenge, obtains a
session, claims the daily quest (or reads the point balance), and can repeat
the whole pass on a fixed schedule with a stoppable background loop.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("CHECKLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose diagnostic logging")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func registerCommands() {
	rootCmd.AddCommand(checkinCmd())
	rootCmd.AddCommand(pointsCmd())
	rootCmd.AddCommand(loopCmd())
	rootCmd.AddCommand(menuCmd())
	rootCmd.AddCommand(configCmd())
}

func checkinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkin",
		Short: "Run one check-in pass over all accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				runPass(ctx, a, a.Engine.CheckinOp(), "daily check-in")
				return nil
			})
		},
	}
}

func pointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "points",
		Short: "Read the current point balance for all accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				runPass(ctx, a, a.Engine.PointsOp(), "point balances")
				return nil
			})
		},
	}
}

func loopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "loop",
		Short: "Check in on the configured schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()
				sched := schedule.New(a.Config.Interval(), a.Sink, a.Log)
				err := sched.Start(ctx, func(ctx context.Context) {
					runPass(ctx, a, a.Engine.CheckinOp(), "daily check-in")
				})
				if err != nil {
					return err
				}
				<-ctx.Done()
				fmt.Println()
				a.Sink.Info("interrupted; waiting for the current pass to finish")
				<-sched.Done()
				return nil
			})
		},
	}
}

func menuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Interactive menu",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.Context) error {
				return runMenu(ctx, a)
			})
		},
	}
}

// runMenu reads commands until exit. It is an explicit loop, not a
// recursive re-prompt, so long sessions do not grow the stack. The
// scheduler runs on its own goroutine and the prompt stays responsive
// while a loop is active.
func runMenu(ctx context.Context, a *app.Context) error {
	sched := schedule.New(a.Config.Interval(), a.Sink, a.Log)
	checkinPass := func(ctx context.Context) {
		runPass(ctx, a, a.Engine.CheckinOp(), "daily check-in")
	}
	scanner := bufio.NewScanner(os.Stdin)
	for {
		printMenu(sched.Status(), len(a.Config.Accounts))
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		switch strings.TrimSpace(scanner.Text()) {
		case "1", "run-once":
			checkinPass(ctx)
		case "2", "start-loop":
			_ = sched.Start(ctx, checkinPass)
		case "3", "stop-loop":
			if sched.Stop() == nil {
				<-sched.Done()
			}
		case "4", "refresh-points":
			runPass(ctx, a, a.Engine.PointsOp(), "point balances")
		case "5", "exit", "quit", "q":
			if sched.Status() == schedule.Running {
				_ = sched.Stop()
				a.Sink.Info("waiting for the loop to wind down")
				<-sched.Done()
			}
			return nil
		case "":
		default:
			a.Sink.Warn("unknown command")
		}
	}
	return scanner.Err()
}

func printMenu(state schedule.State, accounts int) {
	fmt.Printf("\ncheckline — %d account(s), scheduler %s\n", accounts, state)
	fmt.Println("  1) run-once        check in now")
	fmt.Println("  2) start-loop      check in on the schedule")
	fmt.Println("  3) stop-loop       stop the schedule")
	fmt.Println("  4) refresh-points  show point balances")
	fmt.Println("  5) exit")
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage workspace config"}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default checkline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o600); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved config (keys masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Setting", "Value"})
			tw.AppendRow(table.Row{"base_url", cfg.Service.BaseURL})
			tw.AppendRow(table.Row{"retries", cfg.Client.Retries})
			tw.AppendRow(table.Row{"retry_delay", cfg.RetryDelay()})
			tw.AppendRow(table.Row{"interval", cfg.Interval()})
			tw.AppendRow(table.Row{"accounts", len(cfg.Accounts)})
			tw.Render()
			return nil
		},
	}
}

// --- helpers ---

func withApp(ctx context.Context, fn func(context.Context, *app.Context) error) error {
	log := newLogger()
	defer log.Sync()
	sink := events.NewConsole(os.Stdout)
	a, err := app.Resolve(viper.GetString("workspace"), sink, log)
	if err != nil {
		return err
	}
	return fn(ctx, a)
}

func newLogger() *zap.Logger {
	if viper.GetBool("verbose") {
		log, err := zap.NewDevelopment()
		if err == nil {
			return log
		}
	}
	return zap.NewNop()
}

func runPass(ctx context.Context, a *app.Context, op engine.AccountOp, title string) {
	a.Sink.Section(title)
	outcomes := a.Engine.RunOnce(ctx, a.Keys(), op)
	renderSummary(outcomes)
}

func renderSummary(outcomes []domain.Outcome) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Account", "Result"})
	for _, o := range outcomes {
		result := o.Result
		if o.Err != nil {
			result = "error: " + o.Err.Error()
		}
		tw.AppendRow(table.Row{o.Identity, result})
	}
	tw.Render()
}
