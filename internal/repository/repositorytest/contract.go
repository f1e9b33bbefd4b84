// Package repositorytest holds behaviour every CustomerRepository must show
// regardless of the backend it runs on.
package repositorytest

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/require"
	apperrors "github.com/umalmyha/customer-registry/internal/errors"
	"github.com/umalmyha/customer-registry/internal/model"
	"github.com/umalmyha/customer-registry/internal/repository"
)

// Factory must return repository over empty store
type Factory func(t *testing.T) repository.CustomerRepository

// Run executes contract against repositories built by factory, every case gets fresh repository
func Run(t *testing.T, factory Factory) {
	cases := []struct {
		name string
		fn   func(*testing.T, repository.CustomerRepository)
	}{
		{name: "CreateAndRead", fn: testCreateAndRead},
		{name: "CreateRejected", fn: testCreateRejected},
		{name: "CreateWithoutAccountType", fn: testCreateWithoutAccountType},
		{name: "ReadAbsent", fn: testReadAbsent},
		{name: "Update", fn: testUpdate},
		{name: "UpdateNotExisting", fn: testUpdateNotExisting},
		{name: "Delete", fn: testDelete},
		{name: "DeleteNotExisting", fn: testDeleteNotExisting},
		{name: "FindAll", fn: testFindAll},
		{name: "FindAllWithoutRegistrationDate", fn: testFindAllWithoutRegistrationDate},
		{name: "FindByLastname", fn: testFindByLastname},
		{name: "FindByLastnameMixedCase", fn: testFindByLastnameMixedCase},
		{name: "FindByAccountType", fn: testFindByAccountType},
		{name: "FindAllRegisteredAfter", fn: testFindAllRegisteredAfter},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			c.fn(t, factory(t))
		})
	}
}

func date(month time.Month, day int) civil.Date {
	return civil.Date{Year: 2022, Month: month, Day: day}
}

// Seed creates seven customers registered monthly from 2022-01-01 till 2022-07-07.
// Customers are created out of registration order, so ordering is checked for real.
func Seed(t *testing.T, rps repository.CustomerRepository) []*model.Customer {
	t.Helper()

	customers := []*model.Customer{
		{Lastname: "Eberhard", Firstname: "Emil", RegisteredSince: date(5, 5), AccountType: model.AccountTypePremium},
		{Lastname: "Aarhus", Firstname: "Anna", RegisteredSince: date(1, 1), AccountType: model.AccountTypeBasic},
		{Lastname: "Hornbacher", Firstname: "Hugo", RegisteredSince: date(7, 7), AccountType: model.AccountTypeBasic},
		{Lastname: "Chandler", Firstname: "Chris", RegisteredSince: date(3, 3), AccountType: model.AccountTypePremium},
		{Lastname: "Brandtner", Firstname: "Berta", RegisteredSince: date(2, 2), AccountType: model.AccountTypePremium},
		{Lastname: "Eberstolz", Firstname: "Frida", RegisteredSince: date(6, 6), AccountType: model.AccountTypeBasic},
		{Lastname: "Dornacher", Firstname: "Dora", RegisteredSince: date(4, 4), AccountType: model.AccountTypeBasic},
	}

	for _, c := range customers {
		created, err := rps.Create(context.Background(), c)
		require.NoError(t, err, "failed to seed customer %s", c.Lastname)
		require.True(t, created, "customer %s must be created", c.Lastname)
	}
	return customers
}

func newCustomer() *model.Customer {
	return &model.Customer{
		Lastname:        "Hornbacher",
		Firstname:       "Lisa",
		RegisteredSince: date(7, 7),
		AccountType:     model.AccountTypeBasic,
	}
}

func lastnames(customers []*model.Customer) []string {
	names := make([]string, 0, len(customers))
	for _, c := range customers {
		names = append(names, c.Lastname)
	}
	return names
}

func testCreateAndRead(t *testing.T, rps repository.CustomerRepository) {
	ctx := context.Background()
	c := newCustomer()

	t.Log("transient customer is created and gets id")
	{
		created, err := rps.Create(ctx, c)
		require.NoError(t, err, "no error must be raised")
		require.True(t, created, "customer must be created")
		require.False(t, c.IsNew(), "id must be assigned")
	}

	t.Log("created customer is read back equal")
	{
		stored, err := rps.Read(ctx, c.ID)
		require.NoError(t, err, "no error must be raised")
		require.True(t, c.Equal(stored), "stored customer %+v differs from created %+v", stored, c)
	}

	t.Log("second customer gets different id")
	{
		other := newCustomer()
		created, err := rps.Create(ctx, other)
		require.NoError(t, err, "no error must be raised")
		require.True(t, created)
		require.NotEqual(t, c.ID, other.ID, "ids must be unique")
	}
}

func testCreateRejected(t *testing.T, rps repository.CustomerRepository) {
	ctx := context.Background()

	t.Log("nil customer is not created")
	{
		created, err := rps.Create(ctx, nil)
		require.NoError(t, err)
		require.False(t, created)
	}

	t.Log("customer with id is not created and nothing is stored")
	{
		c := newCustomer()
		c.ID = 999
		created, err := rps.Create(ctx, c)
		require.NoError(t, err)
		require.False(t, created)

		all, err := rps.FindAll(ctx)
		require.NoError(t, err)
		require.Empty(t, all, "no customer must be stored")
	}
}

func testCreateWithoutAccountType(t *testing.T, rps repository.CustomerRepository) {
	ctx := context.Background()
	c := newCustomer()
	c.AccountType = ""

	t.Log("customer without account type is rejected by store")
	{
		created, err := rps.Create(ctx, c)
		require.False(t, created)

		var valErr *apperrors.ValidationErr
		require.ErrorAs(t, err, &valErr, "validation error must be raised")
		require.True(t, c.IsNew(), "customer must stay transient")

		all, err := rps.FindAll(ctx)
		require.NoError(t, err)
		require.Empty(t, all, "nothing must be stored")
	}
}

func testReadAbsent(t *testing.T, rps repository.CustomerRepository) {
	ctx := context.Background()

	t.Log("zero id gives no customer")
	{
		c, err := rps.Read(ctx, 0)
		require.NoError(t, err)
		require.Nil(t, c)
	}

	t.Log("unknown id gives no customer")
	{
		c, err := rps.Read(ctx, 424242)
		require.NoError(t, err)
		require.Nil(t, c)
	}
}

func testUpdate(t *testing.T, rps repository.CustomerRepository) {
	ctx := context.Background()
	c := newCustomer()
	_, err := rps.Create(ctx, c)
	require.NoError(t, err)

	t.Log("nil customer is ignored")
	{
		updated, err := rps.Update(ctx, nil)
		require.NoError(t, err)
		require.Nil(t, updated)
	}

	t.Log("all changed fields are persisted, id stays the same")
	{
		changed := c.Clone()
		changed.Lastname = "Hornbach"
		changed.Firstname = "Lena"
		changed.RegisteredSince = date(8, 8)
		changed.AccountType = model.AccountTypePremium

		updated, err := rps.Update(ctx, changed)
		require.NoError(t, err)
		require.Equal(t, c.ID, updated.ID, "id must not change")
		require.True(t, changed.Equal(updated), "returned customer %+v must carry changes", updated)

		stored, err := rps.Read(ctx, c.ID)
		require.NoError(t, err)
		require.True(t, changed.Equal(stored), "stored customer %+v must carry changes", stored)
	}
}

func testUpdateNotExisting(t *testing.T, rps repository.CustomerRepository) {
	ctx := context.Background()

	t.Log("transient customer can't be updated")
	{
		_, err := rps.Update(ctx, newCustomer())
		var argErr *apperrors.ArgumentErr
		require.ErrorAs(t, err, &argErr)
	}

	t.Log("unknown customer can't be updated and is not created")
	{
		c := newCustomer()
		c.ID = 424242
		_, err := rps.Update(ctx, c)
		var argErr *apperrors.ArgumentErr
		require.ErrorAs(t, err, &argErr)

		stored, err := rps.Read(ctx, c.ID)
		require.NoError(t, err)
		require.Nil(t, stored)
	}
}

func testDelete(t *testing.T, rps repository.CustomerRepository) {
	ctx := context.Background()
	c := newCustomer()
	_, err := rps.Create(ctx, c)
	require.NoError(t, err)

	t.Log("nil customer is ignored")
	{
		deleted, err := rps.Delete(ctx, nil)
		require.NoError(t, err)
		require.False(t, deleted)
	}

	t.Log("existing customer is deleted")
	{
		deleted, err := rps.Delete(ctx, c)
		require.NoError(t, err)
		require.True(t, deleted)

		stored, err := rps.Read(ctx, c.ID)
		require.NoError(t, err)
		require.Nil(t, stored, "deleted customer must be gone")
	}

	t.Log("deleted customer can't be deleted again")
	{
		_, err := rps.Delete(ctx, c)
		var argErr *apperrors.ArgumentErr
		require.ErrorAs(t, err, &argErr)
	}
}

func testDeleteNotExisting(t *testing.T, rps repository.CustomerRepository) {
	ctx := context.Background()
	Seed(t, rps)

	t.Log("unknown customer can't be deleted, stored ones are kept")
	{
		c := newCustomer()
		c.ID = 424242
		deleted, err := rps.Delete(ctx, c)
		require.False(t, deleted)

		var argErr *apperrors.ArgumentErr
		require.ErrorAs(t, err, &argErr)

		all, err := rps.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 7)
	}
}

func testFindAll(t *testing.T, rps repository.CustomerRepository) {
	ctx := context.Background()

	t.Log("empty store gives empty result")
	{
		all, err := rps.FindAll(ctx)
		require.NoError(t, err)
		require.NotNil(t, all)
		require.Empty(t, all)
	}

	Seed(t, rps)

	t.Log("all customers are ordered by registration date")
	{
		all, err := rps.FindAll(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{
			"Aarhus", "Brandtner", "Chandler", "Dornacher", "Eberhard", "Eberstolz", "Hornbacher",
		}, lastnames(all))
	}
}

func testFindAllWithoutRegistrationDate(t *testing.T, rps repository.CustomerRepository) {
	ctx := context.Background()
	Seed(t, rps)

	undated := &model.Customer{Lastname: "Nodate", Firstname: "Nina", AccountType: model.AccountTypeBasic}
	created, err := rps.Create(ctx, undated)
	require.NoError(t, err)
	require.True(t, created)

	t.Log("customer without registration date is read back without it")
	{
		stored, err := rps.Read(ctx, undated.ID)
		require.NoError(t, err)
		require.False(t, stored.RegisteredSince.IsValid(), "registration date must stay absent")
	}

	t.Log("customers without registration date come first")
	{
		all, err := rps.FindAll(ctx)
		require.NoError(t, err)
		require.Equal(t, []string{
			"Nodate", "Aarhus", "Brandtner", "Chandler", "Dornacher", "Eberhard", "Eberstolz", "Hornbacher",
		}, lastnames(all))
	}

	t.Log("customers without registration date are never registered after date")
	{
		found, err := rps.FindAllRegisteredAfter(ctx, date(6, 6))
		require.NoError(t, err)
		require.Equal(t, []string{"Hornbacher"}, lastnames(found))
	}
}

func testFindByLastnameMixedCase(t *testing.T, rps repository.CustomerRepository) {
	ctx := context.Background()

	for _, lastname := range []string{"dornberger", "Hornbacher", "Dornacher"} {
		c := newCustomer()
		c.Lastname = lastname
		created, err := rps.Create(ctx, c)
		require.NoError(t, err)
		require.True(t, created)
	}

	t.Log("lastnames are ordered byte-wise, upper case letters first")
	{
		found, err := rps.FindByLastname(ctx, "ORN")
		require.NoError(t, err)
		require.Equal(t, []string{"Dornacher", "Hornbacher", "dornberger"}, lastnames(found))
	}
}

func testFindByLastname(t *testing.T, rps repository.CustomerRepository) {
	ctx := context.Background()
	Seed(t, rps)

	t.Log("empty part gives empty result")
	{
		found, err := rps.FindByLastname(ctx, "")
		require.NoError(t, err)
		require.NotNil(t, found)
		require.Empty(t, found)
	}

	t.Log("part is matched as substring ordered by lastname")
	{
		found, err := rps.FindByLastname(ctx, "orn")
		require.NoError(t, err)
		require.Equal(t, []string{"Dornacher", "Hornbacher"}, lastnames(found))
	}

	t.Log("part is matched ignoring case")
	{
		found, err := rps.FindByLastname(ctx, "eBEr")
		require.NoError(t, err)
		require.Equal(t, []string{"Eberhard", "Eberstolz"}, lastnames(found))
	}

	t.Log("unmatched part gives empty result")
	{
		found, err := rps.FindByLastname(ctx, "xyz")
		require.NoError(t, err)
		require.NotNil(t, found)
		require.Empty(t, found)
	}
}

func testFindByAccountType(t *testing.T, rps repository.CustomerRepository) {
	ctx := context.Background()
	Seed(t, rps)

	t.Log("absent account type gives empty result")
	{
		found, err := rps.FindByAccountType(ctx, "")
		require.NoError(t, err)
		require.NotNil(t, found)
		require.Empty(t, found)
	}

	t.Log("exactly customers of account type are returned")
	{
		basic, err := rps.FindByAccountType(ctx, model.AccountTypeBasic)
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"Aarhus", "Dornacher", "Eberstolz", "Hornbacher"}, lastnames(basic))

		premium, err := rps.FindByAccountType(ctx, model.AccountTypePremium)
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"Brandtner", "Chandler", "Eberhard"}, lastnames(premium))
	}
}

func testFindAllRegisteredAfter(t *testing.T, rps repository.CustomerRepository) {
	ctx := context.Background()
	Seed(t, rps)

	t.Log("customers registered on the date itself are excluded")
	{
		found, err := rps.FindAllRegisteredAfter(ctx, date(4, 4))
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"Eberhard", "Eberstolz", "Hornbacher"}, lastnames(found))
	}

	t.Log("day before includes customer registered next day")
	{
		found, err := rps.FindAllRegisteredAfter(ctx, date(4, 3))
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"Dornacher", "Eberhard", "Eberstolz", "Hornbacher"}, lastnames(found))
	}

	t.Log("date after last registration gives empty result")
	{
		found, err := rps.FindAllRegisteredAfter(ctx, date(7, 7))
		require.NoError(t, err)
		require.NotNil(t, found)
		require.Empty(t, found)
	}
}
