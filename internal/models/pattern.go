package models

import "time"

// PatternType classifies what an adaptation pattern rewrites.
type PatternType string

const (
	PatternTypeImport     PatternType = "import"
	PatternTypeCode       PatternType = "code"
	PatternTypeDependency PatternType = "dependency"
	PatternTypeConfig     PatternType = "config"
	PatternTypeOther      PatternType = "other"
)

// AdaptationPattern is a learned (commit -> transformation) record used
// to suggest resolutions for future, similar conflicts. Append-only;
// Success is a user-supplied judgment, never computed.
type AdaptationPattern struct {
	ID            string
	CommitHash    string
	Type          PatternType
	SourcePattern string
	TargetPattern string
	FileType      string // extension or file kind the pattern applies to
	Context       string
	Success       bool
	Effort        Effort
	Notes         string
	CreatedAt     time.Time
}
