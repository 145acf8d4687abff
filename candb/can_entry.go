package candb

// Entry is one parsed DBC statement handed to the Builder by an external
// parser. The concrete types are the *Entry structs in this file.
type Entry interface {
	entryKind() string
}

// VersionEntry is the VERSION line.
type VersionEntry struct {
	Version string
}

// MessageEntry is a BO_ line. It opens a new frame; the SignalEntry values
// that follow attach to it.
type MessageEntry struct {
	ID          uint32
	Name        string
	Length      int
	Transmitter string
}

// SignalEntry is an SG_ line belonging to the most recent MessageEntry.
type SignalEntry struct {
	Name         string
	StartBit     int
	BitLength    int
	ByteOrder    ByteOrder
	ValueType    ValueType
	Factor       float64
	Offset       float64
	Min          float64
	Max          float64
	Unit         string
	Receivers    []string
	Multiplexing Multiplexing // nil is treated as NotMultiplexed
}

// MessageDescriptionEntry is a CM_ BO_ comment.
type MessageDescriptionEntry struct {
	ID          uint32
	Description string
}

// MessageAttributeEntry is a BA_ value assigned to a message.
type MessageAttributeEntry struct {
	ID    uint32
	Name  string
	Value string
}

// SignalDescriptionEntry is a CM_ SG_ comment.
type SignalDescriptionEntry struct {
	ID          uint32
	Signal      string
	Description string
}

// SignalAttributeEntry is a BA_ value assigned to a signal.
type SignalAttributeEntry struct {
	ID     uint32
	Signal string
	Name   string
	Value  string
}

func (VersionEntry) entryKind() string            { return "version" }
func (MessageEntry) entryKind() string            { return "message" }
func (SignalEntry) entryKind() string             { return "signal" }
func (MessageDescriptionEntry) entryKind() string { return "message description" }
func (MessageAttributeEntry) entryKind() string   { return "message attribute" }
func (SignalDescriptionEntry) entryKind() string  { return "signal description" }
func (SignalAttributeEntry) entryKind() string    { return "signal attribute" }
