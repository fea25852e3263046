package directory_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/directory"
	"github.com/trezcool/masomo-console/core/listing"
	"github.com/trezcool/masomo-console/storage/database/inmem"
)

func setup(t *testing.T) *directory.Service {
	db := inmemdb.Open()
	require.NoError(t, inmemdb.Seed(db, core.Conf))
	return directory.NewService(inmemdb.NewMemberRepository(db))
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOk bool
	}{
		{in: "teacher", want: directory.KindTeacher, wantOk: true},
		{in: " Teachers ", want: directory.KindTeacher, wantOk: true},
		{in: "staff", want: directory.KindStaff, wantOk: true},
		{in: "STUDENTS", want: directory.KindStudent, wantOk: true},
		{in: "parent", want: directory.KindParent, wantOk: true},
		{in: "janitors", wantOk: false},
		{in: "", wantOk: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := directory.ParseKind(tt.in)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_List(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()
	inactive := false

	tests := []struct {
		name      string
		filter    directory.QueryFilter
		wantTotal int
		wantRows  int
		wantPages int
	}{
		{name: "teachers", filter: directory.QueryFilter{Kind: "teachers", Query: listing.Query{PerPage: 12}}, wantTotal: 36, wantRows: 12, wantPages: 3},
		{name: "students last page", filter: directory.QueryFilter{Kind: "student", Query: listing.Query{Page: 12}}, wantTotal: 120, wantRows: 10, wantPages: 12},
		{name: "search", filter: directory.QueryFilter{Kind: "teacher", Query: listing.Query{Search: "MATHEMATICS"}}, wantTotal: 4, wantRows: 4, wantPages: 1},
		{name: "inactive", filter: directory.QueryFilter{IsActive: &inactive, Query: listing.Query{PerPage: 50}}, wantTotal: 22, wantRows: 22, wantPages: 1},
		{name: "past the last page", filter: directory.QueryFilter{Kind: "staff", Query: listing.Query{Page: 4}}, wantTotal: 14, wantRows: 0, wantPages: 2},
		{name: "no match", filter: directory.QueryFilter{Query: listing.Query{Search: "zzz-nobody"}}, wantTotal: 0, wantRows: 0, wantPages: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.filter.Validate())
			view, err := svc.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, view.TotalItems)
			assert.Len(t, view.Rows, tt.wantRows)
			assert.Equal(t, tt.wantPages, view.TotalPages)
		})
	}

	t.Run("ordering", func(t *testing.T) {
		filter := directory.QueryFilter{Kind: directory.KindStaff, Query: listing.Query{PerPage: 100}}
		require.NoError(t, filter.Validate())
		view, err := svc.List(ctx, filter, core.DBOrdering{Field: "name", Ascending: false})
		require.NoError(t, err)
		for i := 1; i < len(view.Rows); i++ {
			assert.GreaterOrEqual(t, view.Rows[i-1].Name, view.Rows[i].Name)
		}
	})

	t.Run("invalid ordering", func(t *testing.T) {
		_, err := svc.List(ctx, directory.QueryFilter{}, core.DBOrdering{Field: "password"})
		flds, ok := core.FieldErrors(err)
		require.True(t, ok)
		assert.Contains(t, flds, "ordering")
	})
}

func TestQueryFilter_Validate(t *testing.T) {
	qf := directory.QueryFilter{Kind: "robots"}
	flds, ok := core.FieldErrors(qf.Validate())
	require.True(t, ok)
	assert.Contains(t, flds, "kind")

	qf = directory.QueryFilter{Query: listing.Query{PerPage: 7}}
	flds, ok = core.FieldErrors(qf.Validate())
	require.True(t, ok)
	assert.Contains(t, flds, "per_page")
}

func TestNewMember_Validate(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	taken, err := svc.GetByID(ctx, inmemdb.SeedID(directory.KindTeacher, 1))
	require.NoError(t, err)

	tests := []struct {
		name string
		nm   directory.NewMember
		want []string
	}{
		{name: "valid", nm: directory.NewMember{Kind: "Teachers", Name: "Jonathan Banza", Email: "jbanza@csk.cd", Phone: "+243 81 555 0101"}},
		{name: "same email, other kind", nm: directory.NewMember{Kind: "parent", Name: "Jonathan Banza", Email: taken.Email}},
		{name: "missing fields", nm: directory.NewMember{}, want: []string{"kind", "name"}},
		{name: "bad email and phone", nm: directory.NewMember{Kind: "staff", Name: "X", Email: "x@", Phone: "call me"}, want: []string{"email", "phone"}},
		{name: "email taken", nm: directory.NewMember{Kind: "teacher", Name: "Copy Cat", Email: taken.Email}, want: []string{"email"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nm.Validate(ctx, svc)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			flds, ok := core.FieldErrors(err)
			require.True(t, ok, err)
			assert.Len(t, flds, len(tt.want))
			for _, fld := range tt.want {
				assert.Contains(t, flds, fld)
			}
		})
	}
}

func TestService_CreateUpdateDelete(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	nm := directory.NewMember{Kind: "students", Name: " Olive Nzuzi ", Department: "6A"}
	require.NoError(t, nm.Validate(ctx, svc))
	m, err := svc.Create(ctx, nm)
	require.NoError(t, err)
	assert.Equal(t, directory.KindStudent, m.Kind)
	assert.Equal(t, "Olive Nzuzi", m.Name)
	assert.True(t, m.IsActive)

	inactive := false
	um := directory.UpdateMember{Email: "olive@eleves.csk.cd", IsActive: &inactive}
	require.NoError(t, um.Validate(ctx, m, svc))
	upd, err := svc.Update(ctx, m, um)
	require.NoError(t, err)
	assert.Equal(t, "Olive Nzuzi", upd.Name)
	assert.Equal(t, "6A", upd.Department)
	assert.Equal(t, "olive@eleves.csk.cd", upd.Email)
	assert.False(t, upd.IsActive)

	// keeping its own email is not a conflict
	um = directory.UpdateMember{Email: "olive@eleves.csk.cd"}
	assert.NoError(t, um.Validate(ctx, upd, svc))

	require.NoError(t, svc.Delete(ctx, m.ID, "not-a-uuid"))
	_, err = svc.GetByID(ctx, m.ID)
	assert.Equal(t, directory.ErrNotFound, errors.Cause(err))

	_, err = svc.GetByID(ctx, "not-a-uuid")
	assert.Equal(t, directory.ErrNotFound, err)
	assert.NoError(t, svc.Delete(ctx, "still-not-a-uuid"))
}

func TestService_Recipients(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	tests := []struct {
		kinds []string
		want  int
	}{
		{kinds: []string{directory.KindTeacher}, want: 33},
		{kinds: []string{directory.KindStaff}, want: 13},
		{kinds: []string{directory.KindParent}, want: 88},
		{kinds: []string{directory.KindStudent}, want: 28}, // only some students have an email
		{kinds: directory.Kinds, want: 162},
		{kinds: nil, want: 0},
	}
	for _, tt := range tests {
		recipients, err := svc.Recipients(ctx, tt.kinds...)
		require.NoError(t, err)
		assert.Len(t, recipients, tt.want, tt.kinds)
		for _, m := range recipients {
			assert.True(t, m.IsActive)
			assert.NotEmpty(t, m.Email)
		}
	}
}

func TestSort(t *testing.T) {
	members := []directory.Member{
		{ID: "3", Name: "bienvenu", Department: "B"},
		{ID: "2", Name: "Amani", Department: "b"},
		{ID: "1", Name: "Bienvenu", Department: "a"},
	}

	directory.Sort(members)
	assert.Equal(t, []string{"2", "1", "3"}, ids(members))

	directory.Sort(members, core.DBOrdering{Field: "department", Ascending: false})
	assert.Equal(t, []string{"2", "3", "1"}, ids(members))

	directory.Sort(members, core.DBOrdering{Field: "department", Ascending: true}, core.DBOrdering{Field: "name", Ascending: true})
	assert.Equal(t, []string{"1", "2", "3"}, ids(members))
}

func ids(members []directory.Member) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.ID)
	}
	return out
}
