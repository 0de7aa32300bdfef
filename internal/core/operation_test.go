package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddColumnRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     AddColumnRequest
		naming  Naming
		wantErr string
	}{
		{name: "valid", req: AddColumnRequest{Table: "users", Column: "age", Type: "INTEGER"}},
		{name: "missing type", req: AddColumnRequest{Table: "users", Column: "age"}, wantErr: "missing column name or type"},
		{name: "missing column", req: AddColumnRequest{Table: "users", Type: "TEXT"}, wantErr: "missing column name or type"},
		{name: "bad table", req: AddColumnRequest{Table: "us ers", Column: "age", Type: "TEXT"}, wantErr: "invalid table name"},
		{name: "bad column", req: AddColumnRequest{Table: "users", Column: "a;ge", Type: "TEXT"}, wantErr: "invalid column name"},
		{name: "leading digit allowed", req: AddColumnRequest{Table: "users", Column: "2fa", Type: "TEXT"}},
		{
			name:    "leading digit under strict naming",
			req:     AddColumnRequest{Table: "users", Column: "2fa", Type: "TEXT"},
			naming:  Naming{Strict: true},
			wantErr: "invalid column name",
		},
		{name: "negative length", req: AddColumnRequest{Table: "users", Column: "a", Type: "VARCHAR", Length: -1}, wantErr: "negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate(tt.naming)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAddColumnRequestColumnDescriptor(t *testing.T) {
	t.Run("type upper-cased", func(t *testing.T) {
		c := AddColumnRequest{Column: "nick", Type: "varchar", Length: 20, Default: StringPtr("anon")}.ColumnDescriptor()
		assert.Equal(t, "VARCHAR", c.Type)
		assert.Equal(t, "VARCHAR(20)", c.TypeDefinition())
		require.NotNil(t, c.Default)
		assert.Equal(t, "anon", *c.Default)
		assert.False(t, c.PrimaryKey)
	})

	t.Run("autoincrement implies primary key", func(t *testing.T) {
		c := AddColumnRequest{Column: "id", Type: "integer", AutoIncrement: true}.ColumnDescriptor()
		assert.True(t, c.PrimaryKey)
		assert.True(t, c.AutoIncrement)
		assert.Equal(t, 1, c.PKPosition)
	})

	t.Run("autoincrement ignored on text", func(t *testing.T) {
		c := AddColumnRequest{Column: "code", Type: "TEXT", AutoIncrement: true}.ColumnDescriptor()
		assert.False(t, c.PrimaryKey)
		assert.False(t, c.AutoIncrement)
	})

	t.Run("empty default is no default", func(t *testing.T) {
		c := AddColumnRequest{Column: "note", Type: "TEXT", Default: StringPtr("")}.ColumnDescriptor()
		assert.Nil(t, c.Default)
	})
}

func TestModifyColumnRequestApply(t *testing.T) {
	current := &Column{Name: "name", Type: "TEXT", NotNull: true, Default: StringPtr("x")}

	tests := []struct {
		name string
		req  ModifyColumnRequest
		want *Column
	}{
		{
			name: "empty name and type keep current values, flags are cleared",
			req:  ModifyColumnRequest{},
			want: &Column{Name: "name", Type: "TEXT"},
		},
		{
			name: "rename and retype",
			req:  ModifyColumnRequest{NewName: "full_name", NewType: "VARCHAR", Length: 100, NotNull: true},
			want: &Column{Name: "full_name", Type: "VARCHAR", Length: 100, NotNull: true},
		},
		{
			name: "new default",
			req:  ModifyColumnRequest{Default: StringPtr("unknown")},
			want: &Column{Name: "name", Type: "TEXT", Default: StringPtr("unknown")},
		},
		{
			name: "becomes primary key",
			req:  ModifyColumnRequest{NewType: "INTEGER", PrimaryKey: true, AutoIncrement: true},
			want: &Column{Name: "name", Type: "INTEGER", PrimaryKey: true, PKPosition: 1, AutoIncrement: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.req.Apply(current)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "name", current.Name)
			assert.True(t, current.NotNull)
		})
	}

	t.Run("dropping the key clears its position", func(t *testing.T) {
		pk := &Column{Name: "id", Type: "INTEGER", PrimaryKey: true, PKPosition: 1}
		got := ModifyColumnRequest{}.Apply(pk)
		assert.False(t, got.PrimaryKey)
		assert.Zero(t, got.PKPosition)
	})
}

func TestModifyColumnRequestValidate(t *testing.T) {
	require.NoError(t, ModifyColumnRequest{Table: "users", Column: "name"}.Validate(Naming{}))
	require.NoError(t, ModifyColumnRequest{Table: "users", Column: "name", NewName: "full_name"}.Validate(Naming{}))
	assert.ErrorIs(t, ModifyColumnRequest{Table: "users", Column: "name", NewName: "full name"}.Validate(Naming{}), ErrValidation)
	assert.ErrorIs(t, ModifyColumnRequest{Table: "users"}.Validate(Naming{}), ErrValidation)
	assert.ErrorIs(t, ModifyColumnRequest{Table: "users", Column: "name", Length: -5}.Validate(Naming{}), ErrValidation)
}

func TestDeleteColumnRequestValidate(t *testing.T) {
	require.NoError(t, DeleteColumnRequest{Table: "users", Column: "email"}.Validate(Naming{}))
	assert.ErrorIs(t, DeleteColumnRequest{Table: "users"}.Validate(Naming{}), ErrValidation)
	assert.ErrorIs(t, DeleteColumnRequest{Table: "", Column: "email"}.Validate(Naming{}), ErrValidation)
}

func TestRenameRequestsUseRenameGrammar(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "table ok", err: RenameTableRequest{Table: "users", NewName: "people"}.Validate(Naming{})},
		{name: "table leading digit", err: RenameTableRequest{Table: "users", NewName: "2people"}.Validate(Naming{}), wantErr: true},
		{name: "table old name leading digit", err: RenameTableRequest{Table: "2users", NewName: "people"}.Validate(Naming{}), wantErr: true},
		{name: "column ok", err: RenameColumnRequest{Table: "users", Column: "email", NewName: "mail"}.Validate(Naming{})},
		{name: "column leading digit", err: RenameColumnRequest{Table: "users", Column: "email", NewName: "1mail"}.Validate(Naming{}), wantErr: true},
		{name: "column empty", err: RenameColumnRequest{Table: "users", Column: "email"}.Validate(Naming{}), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantErr {
				assert.ErrorIs(t, tt.err, ErrValidation)
				return
			}
			assert.NoError(t, tt.err)
		})
	}
}
