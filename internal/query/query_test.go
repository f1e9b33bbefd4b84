package query

import (
	"sort"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/require"
	"github.com/umalmyha/customer-registry/internal/model"
)

func TestMatchLike(t *testing.T) {
	cases := []struct {
		value   string
		pattern string
		match   bool
	}{
		{"Dornacher", "%orn%", true},
		{"Hornbacher", "%orn%", true},
		{"Eberhard", "%eBEr%", true},
		{"Eberstolz", "%EBER%", true},
		{"Chandler", "%orn%", false},
		{"Aarhus", "%%", true},
		{"", "%%", true},
		{"Brandtner", "%r_n%", true},
		{"Brandtner", "Br%", true},
		{"Brandtner", "br", false},
		{"100% sure", "%0\\%%", false},
		{"a.b", "%.%", true},
		{"ab", "%.%", false},
		{"line\nbreak", "%e%b%", true},
	}

	for _, c := range cases {
		require.Equal(t, c.match, MatchLike(c.value, c.pattern), "MatchLike(%q, %q)", c.value, c.pattern)
	}
}

func TestLikeToRegexp(t *testing.T) {
	require.Equal(t, "^.*orn.*$", LikeToRegexp(ContainsPattern("orn")))
	require.Equal(t, "^a.c\\.d\\*$", LikeToRegexp("a_c.d*"))
}

func TestQueryBuilderDoesNotShareState(t *testing.T) {
	base := New().Where(Equals(FieldAccountType, model.AccountTypeBasic))

	first := base.Where(Contains(FieldLastname, "a"))
	second := base.Where(GreaterThan(FieldRegisteredSince, civil.Date{Year: 2022, Month: 1, Day: 1}))

	require.Len(t, base.Conditions, 1)
	require.Len(t, first.Conditions, 2)
	require.Len(t, second.Conditions, 2)
	require.Equal(t, OpContains, first.Conditions[1].Op)
	require.Equal(t, OpGreaterThan, second.Conditions[1].Op)
	require.Equal(t, "%a%", first.Conditions[1].Value)
}

func TestConditionMatches(t *testing.T) {
	c := model.Customer{
		ID:              4,
		Lastname:        "Dornacher",
		Firstname:       "Dorli",
		RegisteredSince: civil.Date{Year: 2022, Month: 4, Day: 4},
		AccountType:     model.AccountTypeBasic,
	}

	t.Log("contains is case-insensitive")
	{
		ok, err := Contains(FieldLastname, "ORN").Matches(c)
		require.NoError(t, err)
		require.True(t, ok)
	}

	t.Log("equals on account type")
	{
		ok, err := Equals(FieldAccountType, model.AccountTypeBasic).Matches(c)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = Equals(FieldAccountType, model.AccountTypePremium).Matches(c)
		require.NoError(t, err)
		require.False(t, ok)
	}

	t.Log("greater than on date is strict")
	{
		ok, err := GreaterThan(FieldRegisteredSince, civil.Date{Year: 2022, Month: 4, Day: 4}).Matches(c)
		require.NoError(t, err)
		require.False(t, ok, "equal date must not match strict bound")

		ok, err = GreaterThan(FieldRegisteredSince, civil.Date{Year: 2022, Month: 4, Day: 3}).Matches(c)
		require.NoError(t, err)
		require.True(t, ok)
	}

	t.Log("mismatching operand is rejected")
	{
		_, err := Contains(FieldRegisteredSince, "2022").Matches(c)
		require.ErrorIs(t, err, ErrUnsupported)

		_, err = Equals(FieldAccountType, 42).Matches(c)
		require.ErrorIs(t, err, ErrUnsupported)

		_, err = Equals(Field("email"), "x").Matches(c)
		require.ErrorIs(t, err, ErrUnsupported)
	}
}

func TestQueryLess(t *testing.T) {
	customers := []model.Customer{
		{ID: 3, Lastname: "Eberstolz", RegisteredSince: civil.Date{Year: 2022, Month: 6, Day: 6}},
		{ID: 1, Lastname: "Aarhus", RegisteredSince: civil.Date{Year: 2022, Month: 6, Day: 6}},
		{ID: 2, Lastname: "Chandler", RegisteredSince: civil.Date{Year: 2022, Month: 1, Day: 1}},
	}

	q := New().OrderBy(FieldRegisteredSince)
	sort.SliceStable(customers, func(i, j int) bool { return q.Less(customers[i], customers[j]) })

	ids := make([]int64, 0, len(customers))
	for _, c := range customers {
		ids = append(ids, c.ID)
	}
	require.Equal(t, []int64{2, 1, 3}, ids, "date ascending, id breaks ties")

	q = New().OrderBy(FieldLastname)
	sort.SliceStable(customers, func(i, j int) bool { return q.Less(customers[i], customers[j]) })
	require.Equal(t, "Aarhus", customers[0].Lastname)
	require.Equal(t, "Eberstolz", customers[2].Lastname)
}

func TestQueryMatcher(t *testing.T) {
	customers := []model.Customer{
		{ID: 1, Lastname: "Dornacher", AccountType: model.AccountTypeBasic},
		{ID: 2, Lastname: "hornbacher", AccountType: model.AccountTypePremium},
		{ID: 3, Lastname: "Chandler", AccountType: model.AccountTypeBasic},
	}

	t.Log("compiled matcher agrees with single evaluation")
	{
		q := New().Where(Contains(FieldLastname, "ORN"), Equals(FieldAccountType, model.AccountTypeBasic))
		matches, err := q.Matcher()
		require.NoError(t, err)

		for _, c := range customers {
			ok, err := matches(c)
			require.NoError(t, err)

			single, err := q.Matches(c)
			require.NoError(t, err)
			require.Equal(t, single, ok, "customer %s", c.Lastname)
		}

		ok, err := matches(customers[0])
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = matches(customers[1])
		require.NoError(t, err)
		require.False(t, ok, "account type must be checked too")
	}

	t.Log("contains over non-text operand is rejected before evaluation")
	{
		_, err := New().Where(Condition{Field: FieldLastname, Op: OpContains, Value: 42}).Matcher()
		require.ErrorIs(t, err, ErrUnsupported)
	}

	t.Log("contains over non-text field is rejected on evaluation")
	{
		matches, err := New().Where(Contains(FieldRegisteredSince, "2022")).Matcher()
		require.NoError(t, err)

		_, err = matches(customers[0])
		require.ErrorIs(t, err, ErrUnsupported)
	}
}

func TestQueryLessMissingValuesFirst(t *testing.T) {
	customers := []model.Customer{
		{ID: 1, Lastname: "dornberger", RegisteredSince: civil.Date{Year: 2022, Month: 1, Day: 1}},
		{ID: 2, Lastname: "Hornbacher", RegisteredSince: civil.Date{Year: 2022, Month: 2, Day: 2}},
		{ID: 3, Lastname: "Nodate"},
	}

	q := New().OrderBy(FieldRegisteredSince)
	sort.SliceStable(customers, func(i, j int) bool { return q.Less(customers[i], customers[j]) })
	require.Equal(t, "Nodate", customers[0].Lastname, "absent date sorts first")

	q = New().OrderBy(FieldLastname)
	sort.SliceStable(customers, func(i, j int) bool { return q.Less(customers[i], customers[j]) })
	require.Equal(t, "Hornbacher", customers[0].Lastname, "upper case sorts before lower case")
	require.Equal(t, "dornberger", customers[2].Lastname)
}

func TestQueryString(t *testing.T) {
	q := New().Where(Contains(FieldLastname, "orn")).OrderBy(FieldLastname)
	require.Equal(t, "lastname contains %orn% order by lastname", q.String())
	require.Equal(t, "all", New().String())
}
