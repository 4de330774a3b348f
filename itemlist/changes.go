package itemlist

// Movement records a row that changed position during one batch, from its
// index in the previous ordering to its index in the new one.
type Movement struct {
	From int
	To   int
}

// ChangeBatch describes one notification's worth of index-level differences.
// Deletions reference positions in the ordering before the batch is applied;
// insertions and modifications reference positions after. During a Resync the
// deletion indices are listed from largest to smallest so consumers can
// remove rows sequentially without shifting the remaining indices.
type ChangeBatch struct {
	Deletions     []int
	Insertions    []int
	Modifications []int
	Movements     []Movement
}

// IsEmpty reports whether the batch records no changes at all. Empty batches
// are never dispatched.
func (b *ChangeBatch) IsEmpty() bool {
	return len(b.Deletions) == 0 && len(b.Insertions) == 0 &&
		len(b.Modifications) == 0 && len(b.Movements) == 0
}

func (b *ChangeBatch) addDeletion(index int) {
	b.Deletions = append(b.Deletions, index)
}

func (b *ChangeBatch) addInsertion(index int) {
	b.Insertions = append(b.Insertions, index)
}

func (b *ChangeBatch) addModification(index int) {
	b.Modifications = append(b.Modifications, index)
}

func (b *ChangeBatch) addMovement(from, to int) {
	b.Movements = append(b.Movements, Movement{From: from, To: to})
}
