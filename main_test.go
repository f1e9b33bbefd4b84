package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/umalmyha/customer-registry/internal/backend/memory"
	"github.com/umalmyha/customer-registry/internal/config"
	"github.com/umalmyha/customer-registry/internal/model"
	"github.com/umalmyha/customer-registry/internal/repository"
	"github.com/umalmyha/customer-registry/internal/repository/repositorytest"
)

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func decodeCustomers(t *testing.T, out *bytes.Buffer) []model.Customer {
	t.Helper()

	customers := make([]model.Customer, 0)
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		var c model.Customer
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &c), "failed to decode line %s", scanner.Text())
		customers = append(customers, c)
	}
	return customers
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{Backend: config.BackendMemory, Timeout: time.Second}

	t.Log("customer is created and metrics are printed")
	{
		var out bytes.Buffer
		args := []string{"-metrics", "create", "-lastname", "Aarhus", "-firstname", "Anna", "-since", "2022-01-01", "-type", "basic"}
		require.NoError(t, run(ctx, cfg, discardLogger(), args, &out))

		lines := strings.SplitN(out.String(), "\n", 2)
		var c model.Customer
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &c))
		require.Equal(t, "Aarhus", c.Lastname)
		require.Equal(t, model.AccountTypeBasic, c.AccountType)
		require.False(t, c.IsNew())
		require.Contains(t, lines[1], `customers_repository_calls_total{operation="create",outcome="ok"} 1`)
	}

	t.Log("memory storage has nothing to migrate")
	{
		require.NoError(t, run(ctx, cfg, discardLogger(), []string{"migrate"}, io.Discard))
	}

	t.Log("missing command is usage error")
	{
		require.ErrorIs(t, run(ctx, cfg, discardLogger(), nil, io.Discard), errUsage)
	}
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	rps := repository.NewCustomerRepository(memory.NewBackend(), nil)
	seeded := repositorytest.Seed(t, rps)

	t.Log("list prints customers by registration date")
	{
		var out bytes.Buffer
		require.NoError(t, execute(ctx, rps, "list", nil, &out))
		customers := decodeCustomers(t, &out)
		require.Len(t, customers, len(seeded))
		require.Equal(t, "Aarhus", customers[0].Lastname)
		require.Equal(t, "Hornbacher", customers[len(customers)-1].Lastname)
	}

	t.Log("find by lastname ignores case")
	{
		var out bytes.Buffer
		require.NoError(t, execute(ctx, rps, "find-lastname", []string{"ORN"}, &out))
		customers := decodeCustomers(t, &out)
		require.Len(t, customers, 2)
		require.Equal(t, "Dornacher", customers[0].Lastname)
	}

	t.Log("registered after excludes date itself")
	{
		var out bytes.Buffer
		require.NoError(t, execute(ctx, rps, "registered-after", []string{"2022-04-04"}, &out))
		require.Len(t, decodeCustomers(t, &out), 3)
	}

	t.Log("find by type parses account type")
	{
		var out bytes.Buffer
		require.NoError(t, execute(ctx, rps, "find-type", []string{"premium"}, &out))
		require.Len(t, decodeCustomers(t, &out), 3)

		require.Error(t, execute(ctx, rps, "find-type", []string{"gold"}, io.Discard))
	}

	t.Log("update changes only given fields")
	{
		target := seeded[0]
		var out bytes.Buffer
		args := []string{strconv.FormatInt(target.ID, 10), "-type", "BASIC"}
		require.NoError(t, execute(ctx, rps, "update", args, &out))

		customers := decodeCustomers(t, &out)
		require.Len(t, customers, 1)
		require.Equal(t, target.Lastname, customers[0].Lastname)
		require.Equal(t, model.AccountTypeBasic, customers[0].AccountType)
	}

	t.Log("delete of unknown customer fails")
	{
		require.Error(t, execute(ctx, rps, "delete", []string{"424242"}, io.Discard))
	}

	t.Log("deleted customer can't be read anymore")
	{
		target := seeded[1]
		require.NoError(t, execute(ctx, rps, "delete", []string{strconv.FormatInt(target.ID, 10)}, io.Discard))

		var out bytes.Buffer
		require.NoError(t, execute(ctx, rps, "get", []string{strconv.FormatInt(target.ID, 10)}, &out))
		require.Equal(t, "null\n", out.String())
	}

	t.Log("unknown command is usage error")
	{
		require.ErrorIs(t, execute(ctx, rps, "drop", nil, io.Discard), errUsage)
	}
}
