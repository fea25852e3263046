package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/user"
)

var operator = user.User{
	ID:          "5c8a2a64-3c1e-4a51-a4d7-8b4e4a2f6f0e",
	Username:    "amani",
	Email:       "amani@csk.cd",
	Roles:       []string{user.RoleStaff},
	Institution: core.Institution{Code: "csk", Name: "Complexe Scolaire Kinshasa"},
}

func TestNewEntry(t *testing.T) {
	other := operator
	other.Username = "bahati"
	boom := errors.New("boom")

	tests := []struct {
		name       string
		args       []interface{}
		wantUser   string
		wantErr    error
		wantFields map[string]interface{}
	}{
		{name: "no args", wantFields: map[string]interface{}{}},
		{
			name:     "operator sets the institution and roles",
			args:     []interface{}{boom, operator},
			wantUser: "amani", wantErr: boom,
			wantFields: map[string]interface{}{"institution": "csk", "roles": user.RoleStaff},
		},
		{
			name:       "only the first operator counts",
			args:       []interface{}{operator, other},
			wantUser:   "amani",
			wantFields: map[string]interface{}{"institution": "csk", "roles": user.RoleStaff},
		},
		{
			name:       "explicit institution wins",
			args:       []interface{}{core.Institution{Code: "isp"}, operator},
			wantUser:   "amani",
			wantFields: map[string]interface{}{"institution": "isp", "roles": user.RoleStaff},
		},
		{
			name:       "fields and extra values",
			args:       []interface{}{map[string]interface{}{"route": "/login"}, 42, boom, errors.New("second")},
			wantErr:    boom,
			wantFields: map[string]interface{}{"route": "/login", "arg1": 42, "error3": "second"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEntry("error", "msg", tt.args)
			if tt.wantUser == "" {
				assert.Nil(t, e.operator)
			} else if assert.NotNil(t, e.operator) {
				assert.Equal(t, tt.wantUser, e.operator.Username)
			}
			assert.Equal(t, tt.wantErr, e.err)
			assert.Equal(t, tt.wantFields, e.fields)
		})
	}
}

func TestRollbarLogger_print(t *testing.T) {
	var buf bytes.Buffer
	l := NewRollbarLogger(log.New(&buf, "", 0), core.Conf)
	defer l.Close()

	l.Error("listing members", errors.New("connection refused"), operator, map[string]interface{}{"page": 2})
	out := buf.String()
	assert.Contains(t, out, "ERROR listing members operator=amani institution=csk page=2 roles="+user.RoleStaff+"\n")
	assert.Contains(t, out, "connection refused")
	assert.NotContains(t, out, operator.Email)

	buf.Reset()
	l.Info("api listening on :8000")
	require.Equal(t, "INFO api listening on :8000\n", buf.String())
}
