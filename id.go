package rosca

import "github.com/xraph/rosca/id"

// ID is the primary identifier type for all rosca records.
type ID = id.ID

// Prefix identifies the record type encoded in a TypeID.
type Prefix = id.Prefix
