package core

import (
	"strings"
)

// OperationKind is used to identify what kind of operation a migration step is.
type OperationKind string

const (
	OperationSQL  OperationKind = "SQL"
	OperationNote OperationKind = "NOTE"
	// OperationBreaking marks a note about data that will not survive the mutation.
	OperationBreaking OperationKind = "BREAKING"
)

// StepKind names the role of a SQL step inside a rebuild pipeline.
type StepKind string

const (
	StepCleanup      StepKind = "cleanup"
	StepCreateShadow StepKind = "create_shadow"
	StepCopyRows     StepKind = "copy_rows"
	StepDropOriginal StepKind = "drop_original"
	StepRenameShadow StepKind = "rename_shadow"
	StepRecreateIdx  StepKind = "recreate_index"
	StepLegacyAlter  StepKind = "legacy_alter_table"
	StepRestoreSeq   StepKind = "restore_sequence"
	StepRecreateTrg  StepKind = "recreate_trigger"
	StepRenameTable  StepKind = "rename_table"
	StepRenameColumn StepKind = "rename_column"
)

// OperationRisk is used to identify the risk level of an operation.
type OperationRisk string

const (
	RiskInfo     OperationRisk = "INFO"
	RiskWarning  OperationRisk = "WARNING"
	RiskBreaking OperationRisk = "BREAKING"
)

// Operation contains all information about a single step of a migration.
type Operation struct {
	Kind OperationKind `json:"kind"`
	Step StepKind      `json:"step,omitempty"`
	SQL  string        `json:"sql,omitempty"`
	Risk OperationRisk `json:"risk,omitempty"`
	// BestEffort steps are logged and skipped when they fail instead of aborting.
	BestEffort bool `json:"bestEffort,omitempty"`
}

// AddColumnRequest appends one column to a table.
type AddColumnRequest struct {
	Table         string  `json:"table"`
	Column        string  `json:"column"`
	Type          string  `json:"type"`
	Length        int     `json:"length,omitempty"`
	PrimaryKey    bool    `json:"primaryKey,omitempty"`
	AutoIncrement bool    `json:"autoIncrement,omitempty"`
	NotNull       bool    `json:"notNull,omitempty"`
	Default       *string `json:"default,omitempty"`
}

// Validate checks the request before it reaches the executor.
func (r AddColumnRequest) Validate(n Naming) error {
	if err := ValidateIdentifier("table", r.Table, n.Grammar(GrammarName)); err != nil {
		return err
	}
	if strings.TrimSpace(r.Column) == "" || strings.TrimSpace(r.Type) == "" {
		return Invalidf("missing column name or type")
	}
	if err := ValidateIdentifier("column", r.Column, n.Grammar(GrammarName)); err != nil {
		return err
	}
	if r.Length < 0 {
		return Invalidf("column length must not be negative")
	}
	return nil
}

// ColumnDescriptor builds the descriptor of the new column. The type is upper-cased and an
// AUTOINCREMENT request on an INTEGER column implies PRIMARY KEY.
func (r AddColumnRequest) ColumnDescriptor() *Column {
	c := &Column{
		Name:       r.Column,
		Type:       strings.ToUpper(strings.TrimSpace(r.Type)),
		Length:     r.Length,
		NotNull:    r.NotNull,
		PrimaryKey: r.PrimaryKey,
		Default:    nonEmpty(r.Default),
	}
	if r.AutoIncrement && c.IsInteger() {
		c.PrimaryKey = true
		c.AutoIncrement = true
	}
	if c.PrimaryKey {
		c.PKPosition = 1
	}
	return c
}

// DeleteColumnRequest removes one column from a table.
type DeleteColumnRequest struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// Validate checks the request before it reaches the executor.
func (r DeleteColumnRequest) Validate(n Naming) error {
	if err := ValidateIdentifier("table", r.Table, n.Grammar(GrammarName)); err != nil {
		return err
	}
	return ValidateIdentifier("column", r.Column, n.Grammar(GrammarName))
}

// ModifyColumnRequest redefines one column in place. Empty NewName and NewType keep
// the current values; the flags and the default are taken as given.
type ModifyColumnRequest struct {
	Table         string  `json:"table"`
	Column        string  `json:"column"`
	NewName       string  `json:"newName,omitempty"`
	NewType       string  `json:"newType,omitempty"`
	Length        int     `json:"length,omitempty"`
	PrimaryKey    bool    `json:"primaryKey,omitempty"`
	AutoIncrement bool    `json:"autoIncrement,omitempty"`
	NotNull       bool    `json:"notNull,omitempty"`
	Default       *string `json:"default,omitempty"`
}

// Validate checks the request before it reaches the executor.
func (r ModifyColumnRequest) Validate(n Naming) error {
	if err := ValidateIdentifier("table", r.Table, n.Grammar(GrammarName)); err != nil {
		return err
	}
	if err := ValidateIdentifier("column", r.Column, n.Grammar(GrammarName)); err != nil {
		return err
	}
	if r.NewName != "" {
		if err := ValidateIdentifier("column", r.NewName, n.Grammar(GrammarName)); err != nil {
			return err
		}
	}
	if r.Length < 0 {
		return Invalidf("column length must not be negative")
	}
	return nil
}

// Apply returns the redefined column, built from the current descriptor.
func (r ModifyColumnRequest) Apply(current *Column) *Column {
	c := current.Clone()
	if r.NewName != "" {
		c.Name = r.NewName
	}
	if t := strings.TrimSpace(r.NewType); t != "" {
		c.Type = t
		c.Length = r.Length
	} else if r.Length > 0 {
		c.Length = r.Length
	}
	c.NotNull = r.NotNull
	c.Default = nonEmpty(r.Default)
	c.PrimaryKey = r.PrimaryKey
	c.AutoIncrement = r.AutoIncrement
	if c.PrimaryKey && c.PKPosition == 0 {
		c.PKPosition = 1
	}
	if !c.PrimaryKey {
		c.PKPosition = 0
	}
	return c
}

// RenameTableRequest renames a table using the engine's native support.
type RenameTableRequest struct {
	Table   string `json:"table"`
	NewName string `json:"newName"`
}

// Validate checks the request before it reaches the executor.
func (r RenameTableRequest) Validate(_ Naming) error {
	if err := ValidateRenameName("table", r.Table); err != nil {
		return err
	}
	return ValidateRenameName("table", r.NewName)
}

// RenameColumnRequest renames a column using the engine's native support.
type RenameColumnRequest struct {
	Table   string `json:"table"`
	Column  string `json:"column"`
	NewName string `json:"newName"`
}

// Validate checks the request before it reaches the executor.
func (r RenameColumnRequest) Validate(_ Naming) error {
	if err := ValidateRenameName("table", r.Table); err != nil {
		return err
	}
	if err := ValidateRenameName("column", r.Column); err != nil {
		return err
	}
	return ValidateRenameName("column", r.NewName)
}

func nonEmpty(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	out := *v
	return &out
}
