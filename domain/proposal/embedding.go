package proposal

// Embedding is a fixed-dimension vector keyed to a proposal. Its lifetime is
// bounded by the parent proposal's: the schema cascades deletes from
// proposals to embeddings.
type Embedding struct {
	proposalID string
	vector     []float64
}

// NewEmbedding creates an Embedding for the given proposal.
func NewEmbedding(proposalID string, vector []float64) Embedding {
	cp := make([]float64, len(vector))
	copy(cp, vector)
	return Embedding{proposalID: proposalID, vector: cp}
}

// ProposalID returns the owning proposal's identifier.
func (e Embedding) ProposalID() string { return e.proposalID }

// Vector returns a copy of the embedding vector.
func (e Embedding) Vector() []float64 {
	cp := make([]float64, len(e.vector))
	copy(cp, e.vector)
	return cp
}

// Dimension returns the vector length.
func (e Embedding) Dimension() int { return len(e.vector) }
