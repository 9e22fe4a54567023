package types

// Log is an event emitted by a LOG0..LOG4 instruction
type Log struct {
	Address Address  `json:"address" yaml:"address"`
	Topics  []Hash   `json:"topics" yaml:"topics"`
	Data    HexBytes `json:"data" yaml:"data"`
}

// Copy returns a deep copy of the log
func (l *Log) Copy() *Log {
	cp := &Log{
		Address: l.Address,
		Topics:  make([]Hash, len(l.Topics)),
		Data:    make([]byte, len(l.Data)),
	}

	copy(cp.Topics, l.Topics)
	copy(cp.Data, l.Data)

	return cp
}
