package monitoring

import (
	"context"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/umalmyha/customer-registry/internal/backend/memory"
	"github.com/umalmyha/customer-registry/internal/model"
	"github.com/umalmyha/customer-registry/internal/repository"
)

func TestInstrument(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	metrics := NewRepositoryMetrics(reg)
	rps := Instrument(repository.NewCustomerRepository(memory.NewBackend(), nil), metrics)

	c := &model.Customer{
		Lastname:        "Aarhus",
		Firstname:       "Anna",
		RegisteredSince: civil.Date{Year: 2022, Month: 1, Day: 1},
		AccountType:     model.AccountTypeBasic,
	}

	t.Log("successful create is counted as ok")
	{
		created, err := rps.Create(ctx, c)
		require.NoError(t, err)
		require.True(t, created)
		require.Equal(t, 1.0, testutil.ToFloat64(metrics.CallsTotal.WithLabelValues("create", OutcomeOK)))
	}

	t.Log("create of persisted customer is counted as rejected")
	{
		created, err := rps.Create(ctx, c)
		require.NoError(t, err)
		require.False(t, created)
		require.Equal(t, 1.0, testutil.ToFloat64(metrics.CallsTotal.WithLabelValues("create", OutcomeRejected)))
	}

	t.Log("failed delete is counted as error")
	{
		_, err := rps.Delete(ctx, &model.Customer{ID: 99, AccountType: model.AccountTypeBasic})
		require.Error(t, err)
		require.Equal(t, 1.0, testutil.ToFloat64(metrics.CallsTotal.WithLabelValues("delete", OutcomeError)))
	}

	t.Log("queries are counted and timed")
	{
		found, err := rps.FindByLastname(ctx, "AAR")
		require.NoError(t, err)
		require.Len(t, found, 1)

		_, err = rps.FindByLastname(ctx, "")
		require.NoError(t, err)

		expected := `
# HELP customers_repository_calls_total Total number of customer repository calls.
# TYPE customers_repository_calls_total counter
customers_repository_calls_total{operation="create",outcome="ok"} 1
customers_repository_calls_total{operation="create",outcome="rejected"} 1
customers_repository_calls_total{operation="delete",outcome="error"} 1
customers_repository_calls_total{operation="findByLastname",outcome="ok"} 1
customers_repository_calls_total{operation="findByLastname",outcome="rejected"} 1
`
		err = testutil.GatherAndCompare(reg, strings.NewReader(expected), "customers_repository_calls_total")
		require.NoError(t, err)
		require.Equal(t, 3, testutil.CollectAndCount(metrics.CallDuration), "one series per operation expected")
	}
}
