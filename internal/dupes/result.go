package dupes

// NoHashTool is the structured error token emitted when no digest
// algorithm in the preference list is usable.
const NoHashTool = "no_hash_tool"

// DigestEntry is one hashed candidate file. Entries with equal Size but
// different Digest are not duplicates.
type DigestEntry struct {
	Digest string
	Size   int64
	Path   string
}

// Group is a set of files sharing both size and content digest.
// All copies are equivalent removal candidates; which one survives is a
// cleanup decision, not the engine's.
type Group struct {
	Hash   string   `json:"hash"`
	Size   int64    `json:"size"`
	Count  int      `json:"count"`
	Wasted int64    `json:"wasted"`
	Files  []string `json:"files"`
}

// Result is the engine's sole externally visible artifact.
type Result struct {
	Groups           []Group `json:"groups"`
	TotalWastedBytes int64   `json:"total_wasted_bytes"`
	Error            string  `json:"error,omitempty"`

	// Run accounting. Deliberately excluded from the serialized
	// document; the schema above is fixed.
	FilesCataloged int64  `json:"-"`
	FilesHashed    int64  `json:"-"`
	HashFailures   int64  `json:"-"`
	Algorithm      string `json:"-"`
}

// emptyResult returns a successful result with no groups. Groups is a
// non-nil empty slice so it serializes as [] rather than null.
func emptyResult() Result {
	return Result{Groups: []Group{}}
}
