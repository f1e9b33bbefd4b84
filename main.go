package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/sirupsen/logrus"
	"github.com/umalmyha/customer-registry/internal/config"
	"github.com/umalmyha/customer-registry/internal/infra"
	"github.com/umalmyha/customer-registry/internal/model"
	"github.com/umalmyha/customer-registry/internal/monitoring"
	"github.com/umalmyha/customer-registry/internal/repository"
)

const usage = `usage: customer-registry [-metrics] <command> [arguments]

commands:
  migrate                                   create or update storage schema
  list                                      list all customers by registration date
  get <id>                                  read customer
  create [customer flags]                   create customer
  update <id> [customer flags]              update customer
  delete <id>                               delete customer
  find-lastname <part>                      find customers by part of lastname
  find-type <BASIC|PREMIUM>                 find customers by account type
  registered-after <yyyy-mm-dd>             find customers registered after date

customer flags:
  -lastname, -firstname, -since <yyyy-mm-dd>, -type <BASIC|PREMIUM>

storage is configured with environment variables, see CUSTOMERS_BACKEND`

var errUsage = errors.New(usage)

func main() {
	cfg, err := config.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := infra.Logger(cfg.LogCfg, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		logger.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *logrus.Logger, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("customer-registry", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dumpMetrics := fs.Bool("metrics", false, "print repository metrics after command")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if fs.NArg() == 0 {
		return errUsage
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	storage, err := infra.OpenStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer storage.Close(context.Background())

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	if cmd == "migrate" {
		return storage.Migrate(ctx)
	}

	reg := prometheus.NewRegistry()
	rps := monitoring.Instrument(
		repository.NewCustomerRepository(storage.Backend, logger),
		monitoring.NewRepositoryMetrics(reg),
	)

	if err := execute(ctx, rps, cmd, cmdArgs, out); err != nil {
		return err
	}

	if *dumpMetrics {
		return writeMetrics(reg, out)
	}
	return nil
}

func execute(ctx context.Context, rps repository.CustomerRepository, cmd string, args []string, out io.Writer) error {
	enc := json.NewEncoder(out)

	switch cmd {
	case "list":
		customers, err := rps.FindAll(ctx)
		if err != nil {
			return err
		}
		return writeCustomers(enc, customers)
	case "get":
		id, err := idArg(args)
		if err != nil {
			return err
		}

		c, err := rps.Read(ctx, id)
		if err != nil {
			return err
		}
		return enc.Encode(c)
	case "create":
		c := &model.Customer{}
		if err := customerFlags(c, args); err != nil {
			return err
		}

		created, err := rps.Create(ctx, c)
		if err != nil {
			return err
		}
		if !created {
			return fmt.Errorf("customer was not created")
		}
		return enc.Encode(c)
	case "update":
		id, err := idArg(args)
		if err != nil {
			return err
		}

		c, err := rps.Read(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			c = &model.Customer{ID: id}
		}

		if err := customerFlags(c, args[1:]); err != nil {
			return err
		}

		updated, err := rps.Update(ctx, c)
		if err != nil {
			return err
		}
		return enc.Encode(updated)
	case "delete":
		id, err := idArg(args)
		if err != nil {
			return err
		}

		deleted, err := rps.Delete(ctx, &model.Customer{ID: id})
		if err != nil {
			return err
		}
		return enc.Encode(map[string]interface{}{"id": id, "deleted": deleted})
	case "find-lastname":
		if len(args) != 1 {
			return errUsage
		}

		customers, err := rps.FindByLastname(ctx, args[0])
		if err != nil {
			return err
		}
		return writeCustomers(enc, customers)
	case "find-type":
		if len(args) != 1 {
			return errUsage
		}

		t, err := model.ParseAccountType(args[0])
		if err != nil {
			return err
		}

		customers, err := rps.FindByAccountType(ctx, t)
		if err != nil {
			return err
		}
		return writeCustomers(enc, customers)
	case "registered-after":
		if len(args) != 1 {
			return errUsage
		}

		date, err := civil.ParseDate(args[0])
		if err != nil {
			return fmt.Errorf("failed to parse date - %w", err)
		}

		customers, err := rps.FindAllRegisteredAfter(ctx, date)
		if err != nil {
			return err
		}
		return writeCustomers(enc, customers)
	default:
		return errUsage
	}
}

func idArg(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, errUsage
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid customer id %q - %w", args[0], err)
	}
	return id, nil
}

// customerFlags applies flags which were set explicitly, other fields keep their values
func customerFlags(c *model.Customer, args []string) error {
	fs := flag.NewFlagSet("customer", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	lastname := fs.String("lastname", c.Lastname, "")
	firstname := fs.String("firstname", c.Firstname, "")
	since := fs.String("since", "", "")
	accountType := fs.String("type", "", "")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	c.Lastname = *lastname
	c.Firstname = *firstname

	if *since != "" {
		date, err := civil.ParseDate(*since)
		if err != nil {
			return fmt.Errorf("failed to parse registration date - %w", err)
		}
		c.RegisteredSince = date
	}

	if *accountType != "" {
		t, err := model.ParseAccountType(*accountType)
		if err != nil {
			return err
		}
		c.AccountType = t
	}
	return nil
}

func writeCustomers(enc *json.Encoder, customers []*model.Customer) error {
	for _, c := range customers {
		if err := enc.Encode(c); err != nil {
			return err
		}
	}
	return nil
}

func writeMetrics(gatherer prometheus.Gatherer, out io.Writer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics - %w", err)
	}

	enc := expfmt.NewEncoder(out, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode metrics - %w", err)
		}
	}
	return nil
}
