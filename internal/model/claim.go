package model

// Claim is the factual statement a question's evidence is verified against
type Claim struct {
	Text string `json:"text"`
}

// SubClaim is derived from a Claim by decomposition
// Parent is a back reference only; sub-claims are recomputed per call
type SubClaim struct {
	Text   string `json:"text"`
	Parent *Claim `json:"-"`
}

// ClaimKind categorizes the surface form of a claim
type ClaimKind string

const (
	ClaimKindAtomic      ClaimKind = "atomic"      // No compound marker matched
	ClaimKindConjunctive ClaimKind = "conjunctive" // "A and B share/both/same ..."
	ClaimKindDisjunctive ClaimKind = "disjunctive" // "One of A or B ..."
)
