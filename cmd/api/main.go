package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"

	"medicine-reminder/internal/app"
	"medicine-reminder/internal/config"
	"medicine-reminder/internal/platform/logger"
)

// @title Medicine Reminder API
// @version 1.0
// @description Registro de tomas de medicamentos con recordatorio por email.
// @BasePath /
func main() {
	if err := newCLI().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newCLI() *cli.App {
	a := cli.NewApp()
	a.Name = "medicine-reminder"
	a.HelpName = "medicine-reminder"
	a.Usage = "registro de tomas de medicamentos con recordatorio por email"
	a.UsageText = "medicine-reminder [--config path] <command>"
	a.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "archivo YAML de configuración (opcional)",
			EnvVar: "MEDREMINDER_CONFIG",
		},
	}
	a.Commands = []cli.Command{
		{
			Name:   "serve",
			Usage:  "levanta la API HTTP y el scheduler de recordatorios",
			Action: serve,
		},
		{
			Name:   "migrate",
			Usage:  "crea o actualiza el schema del store configurado",
			Action: migrate,
		},
		{
			Name:   "recover",
			Usage:  "cancela los recordatorios vencidos durante una caída y termina; los futuros quedan pending hasta el próximo serve",
			Action: recoverReminders,
		},
	}
	// sin subcomando: serve, como el binario anterior
	a.Action = serve
	return a
}

func load(c *cli.Context) (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: logger.ParseFormat(cfg.Log.Format),
		App:    cfg.App.Name,
	})
	return cfg, log, nil
}

func serve(c *cli.Context) error {
	cfg, log, err := load(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	log.Info("config loaded", map[string]any{
		"store":     cfg.Store.Driver,
		"notifier":  cfg.Notifier.Kind,
		"lead_time": cfg.Reminder.LeadTime.String(),
		"timezone":  cfg.Reminder.Timezone,
	})
	return a.Run(ctx)
}

func migrate(c *cli.Context) error {
	cfg, log, err := load(c)
	if err != nil {
		return err
	}

	_, closeStore, err := app.OpenStore(context.Background(), cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	log.Info("schema ready", map[string]any{"store": cfg.Store.Driver})
	return nil
}

func recoverReminders(c *cli.Context) error {
	cfg, log, err := load(c)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.Recover(ctx)
	if err != nil {
		return err
	}
	// no arranca el scheduler: lo adoptado solo queda pending en el store
	fmt.Fprintf(c.App.Writer, "still_pending=%d known=%d cancelled=%d ignored=%d\n",
		rep.Scheduled, rep.Known, rep.Cancelled, rep.Ignored)
	return nil
}
