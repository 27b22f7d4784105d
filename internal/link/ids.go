package link

// ObjectID, InputSectionID, and OutputSectionID are the stable opaque
// identifiers spec.md §3/§4.2 requires: every cross-aggregate reference is
// one of these ids resolved through the Context arena rather than a raw
// pointer, so mutation never aliases and lifetime is decoupled from any one
// struct's references (spec.md §9).
type ObjectID int

// InputSectionID identifies a retained input section across its lifetime.
type InputSectionID int

// OutputSectionID identifies a merged output section.
type OutputSectionID int
