package domain

// RearrangementResult counts stock moves and their travel distance
type RearrangementResult struct {
	Count  int     `json:"count"`
	Length float64 `json:"length"`
}

// Add accumulates another result
func (r *RearrangementResult) Add(other RearrangementResult) {
	r.Count += other.Count
	r.Length += other.Length
}

// Record adds a single move of the given distance
func (r *RearrangementResult) Record(distance float64) {
	r.Count++
	r.Length += distance
}

// MultipleRearrangementResult splits moves by kind
type MultipleRearrangementResult struct {
	HighToGround   RearrangementResult `json:"highzoneGroundzone"`
	GroundToGround RearrangementResult `json:"groundzoneGroundzone"`
}

// Add accumulates another result
func (m *MultipleRearrangementResult) Add(other MultipleRearrangementResult) {
	m.HighToGround.Add(other.HighToGround)
	m.GroundToGround.Add(other.GroundToGround)
}

// Total returns the sum of both kinds
func (m MultipleRearrangementResult) Total() RearrangementResult {
	total := m.HighToGround
	total.Add(m.GroundToGround)
	return total
}
