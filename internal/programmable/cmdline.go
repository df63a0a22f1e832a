package programmable

// SetCmdLine stores value at rank, growing the line with zeros as needed.
// Negative ranks are ignored.
func (a *Adapter) SetCmdLine(rank int, value float64) {
	if rank < 0 {
		return
	}
	if rank >= len(a.cmdLine) {
		a.cmdLine = append(a.cmdLine, make([]float64, rank+1-len(a.cmdLine))...)
	}
	a.cmdLine[rank] = value
}

// GetCmdLine returns the value at rank or 0 when unset.
func (a *Adapter) GetCmdLine(rank int) float64 {
	if rank < 0 || rank >= len(a.cmdLine) {
		return 0
	}
	return a.cmdLine[rank]
}

// CmdLine returns a copy of the whole command line.
func (a *Adapter) CmdLine() []float64 {
	out := make([]float64, len(a.cmdLine))
	copy(out, a.cmdLine)
	return out
}
