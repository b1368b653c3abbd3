package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"earnify/cmd"
	"earnify/database"

	log "github.com/sirupsen/logrus"
)

const usage = `usage: earnify [command]

  (no command)                                  run the HTTP service
  migrate up|down [steps]|status                manage the schema
  activate-referral <refereeId>                 activate a referral edge
  resolve-withdrawal <txId> success|failed [reason]
  reconcile <userId>                            compare balances with the ledger`

func main() {
	configureLogging()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := dispatch(ctx, os.Args[1:]); err != nil {
		log.WithError(err).Fatal("Command failed")
	}
}

func dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return cmd.Run(ctx)
	}

	switch args[0] {
	case "migrate":
		return handleMigrationCommand(args[1:])
	case "activate-referral":
		if len(args) != 2 {
			return fmt.Errorf("usage: earnify activate-referral <refereeId>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return cmd.ActivateReferral(ctx, id)
	case "resolve-withdrawal":
		if len(args) < 3 {
			return fmt.Errorf("usage: earnify resolve-withdrawal <txId> success|failed [reason]")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		var success bool
		switch args[2] {
		case "success":
			success = true
		case "failed":
		default:
			return fmt.Errorf("outcome must be success or failed, got %q", args[2])
		}
		reason := ""
		if len(args) > 3 {
			reason = args[3]
		}
		return cmd.ResolveWithdrawal(ctx, id, success, reason)
	case "reconcile":
		if len(args) != 2 {
			return fmt.Errorf("usage: earnify reconcile <userId>")
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return cmd.Reconcile(ctx, id)
	case "help", "-h", "--help":
		fmt.Println(usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func handleMigrationCommand(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: earnify migrate [up|down|status] [args...]")
	}

	switch args[0] {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(args) > 1 {
			steps = args[1]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", args[0])
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// configureLogging reads LOG_LEVEL and ENVIRONMENT directly so migrations can log before config loads
func configureLogging() {
	if os.Getenv("ENVIRONMENT") == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
