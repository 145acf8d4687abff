// Package dbcparse turns DBC source text into the entry sequence consumed
// by candb.Build. Tokenizing and grammar are delegated to the
// go.einride.tech/can DBC parser; this package only maps its definitions.
package dbcparse

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"go.einride.tech/can/pkg/dbc"

	"dbc-codec-core/candb"
)

type parseOptions struct {
	log *candb.Logger
}

type ParseOption func(*parseOptions)

func WithLogger(l *candb.Logger) ParseOption {
	return func(o *parseOptions) {
		if l != nil {
			o.log = l
		}
	}
}

type signalKey struct {
	id   dbc.MessageID
	name dbc.Identifier
}

// Parse parses DBC text and returns its entries in source order. name is
// only used in error positions.
func Parse(name string, data []byte, opts ...ParseOption) ([]candb.Entry, error) {
	o := parseOptions{log: candb.NopLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	p := dbc.NewParser(name, data)
	if err := p.Parse(); err != nil {
		return nil, errors.Wrapf(err, "parse dbc %s", name)
	}
	defs := p.Defs()

	// SIG_VALTYPE_ lines come after the messages they refine.
	valueTypes := map[signalKey]dbc.SignalValueType{}
	for _, def := range defs {
		if vt, ok := def.(*dbc.SignalValueTypeDef); ok {
			valueTypes[signalKey{vt.MessageID, vt.SignalName}] = vt.SignalValueType
		}
	}

	var entries []candb.Entry
	for _, def := range defs {
		switch d := def.(type) {
		case *dbc.VersionDef:
			entries = append(entries, candb.VersionEntry{Version: d.Version})
		case *dbc.MessageDef:
			if d.MessageID == dbc.IndependentSignalsMessageID {
				o.log.Debug("skipping independent signals pseudo-message %s", d.Name)
				continue
			}
			entries = append(entries, candb.MessageEntry{
				ID:          uint32(d.MessageID),
				Name:        string(d.Name),
				Length:      int(d.Size),
				Transmitter: string(d.Transmitter),
			})
			for i := range d.Signals {
				entries = append(entries, signalEntry(&d.Signals[i], valueTypes[signalKey{d.MessageID, d.Signals[i].Name}], o.log))
			}
		case *dbc.CommentDef:
			switch d.ObjectType {
			case dbc.ObjectTypeMessage:
				entries = append(entries, candb.MessageDescriptionEntry{
					ID:          uint32(d.MessageID),
					Description: d.Comment,
				})
			case dbc.ObjectTypeSignal:
				entries = append(entries, candb.SignalDescriptionEntry{
					ID:          uint32(d.MessageID),
					Signal:      string(d.SignalName),
					Description: d.Comment,
				})
			default:
				o.log.Debug("skipping %s comment", d.ObjectType)
			}
		case *dbc.AttributeValueForObjectDef:
			switch d.ObjectType {
			case dbc.ObjectTypeMessage:
				entries = append(entries, candb.MessageAttributeEntry{
					ID:    uint32(d.MessageID),
					Name:  string(d.AttributeName),
					Value: attributeValue(d),
				})
			case dbc.ObjectTypeSignal:
				entries = append(entries, candb.SignalAttributeEntry{
					ID:     uint32(d.MessageID),
					Signal: string(d.SignalName),
					Name:   string(d.AttributeName),
					Value:  attributeValue(d),
				})
			default:
				o.log.Debug("skipping %s attribute %s", d.ObjectType, d.AttributeName)
			}
		default:
			o.log.Trace("skipping %T", def)
		}
	}
	return entries, nil
}

// Load parses DBC text and builds a Library from it. A logger given with
// candb.WithLogger is used for both steps.
func Load(name string, data []byte, opts ...candb.Option) (*candb.Library, error) {
	entries, err := Parse(name, data, WithLogger(candb.LoggerFrom(opts...)))
	if err != nil {
		return nil, err
	}
	lib, err := candb.Build(entries, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "build library from %s", name)
	}
	return lib, nil
}

func signalEntry(s *dbc.SignalDef, vt dbc.SignalValueType, log *candb.Logger) candb.SignalEntry {
	e := candb.SignalEntry{
		Name:      string(s.Name),
		StartBit:  int(s.StartBit),
		BitLength: int(s.Size),
		ByteOrder: candb.LittleEndian,
		ValueType: candb.Unsigned,
		Factor:    s.Factor,
		Offset:    s.Offset,
		Min:       s.Minimum,
		Max:       s.Maximum,
		Unit:      s.Unit,
	}
	if s.IsBigEndian {
		e.ByteOrder = candb.BigEndian
	}
	if s.IsSigned {
		e.ValueType = candb.Signed
	}
	switch vt {
	case dbc.SignalValueTypeFloat32, dbc.SignalValueTypeFloat64:
		e.ValueType = candb.Float
	}
	for _, r := range s.Receivers {
		e.Receivers = append(e.Receivers, string(r))
	}

	switch {
	case s.IsMultiplexed:
		if s.IsMultiplexerSwitch {
			log.Debug("signal %s: extended multiplexing not supported, treating as m%d", s.Name, s.MultiplexerSwitch)
		}
		e.Multiplexing = candb.MultiplexedBy{Switch: s.MultiplexerSwitch}
	case s.IsMultiplexerSwitch:
		e.Multiplexing = candb.Multiplexor{}
	default:
		e.Multiplexing = candb.NotMultiplexed{}
	}
	return e
}

func attributeValue(d *dbc.AttributeValueForObjectDef) string {
	switch {
	case d.StringValue != "":
		return d.StringValue
	case d.FloatValue != 0:
		return strconv.FormatFloat(d.FloatValue, 'g', -1, 64)
	default:
		return strconv.FormatInt(d.IntValue, 10)
	}
}
