package portfolio

// Position returns a copy of the position held in ticker
func (p *Portfolio) Position(ticker string) (Position, bool) {
	position, exists := p.positions[ticker]
	if !exists {
		return Position{}, false
	}
	return *position, true
}

// HasPosition checks if we have a position in a ticker
func (p *Portfolio) HasPosition(ticker string) bool {
	_, exists := p.positions[ticker]
	return exists
}

// Positions returns copies of all open positions ordered by ticker
func (p *Portfolio) Positions() []Position {
	positions := make([]Position, 0, len(p.positions))
	for _, ticker := range p.sortedTickers() {
		positions = append(positions, *p.positions[ticker])
	}
	return positions
}

// OpenPositionCount returns the number of open positions
func (p *Portfolio) OpenPositionCount() int {
	return len(p.positions)
}
