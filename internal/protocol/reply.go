package protocol

import (
	"fmt"
	"strconv"
)

// Reply field names, in wire order.
const (
	fieldTemperature = "temperature"
	fieldHumidity    = "humidity"
	fieldMood        = "mood"
)

// maxIntDigits caps numeric fields well below int overflow.
const maxIntDigits = 9

// Reply is the gateway's answer to a request.
type Reply struct {
	// Temperature in whole degrees Celsius.
	Temperature int

	// Humidity in whole percent.
	Humidity int

	// Mood is the city's stored mood name. It must not contain '"'.
	Mood string
}

// EncodeReply renders r as
//
//	{ "temperature": T, "humidity": H, "mood": "M" }
func EncodeReply(r Reply) []byte {
	return []byte(fmt.Sprintf(`{ "%s": %d, "%s": %d, "%s": "%s" }`,
		fieldTemperature, r.Temperature,
		fieldHumidity, r.Humidity,
		fieldMood, r.Mood,
	))
}

// DecodeReply parses a reply record. Fields must appear in the order
// temperature, humidity, mood; whitespace between tokens is tolerated.
func DecodeReply(payload []byte) (Reply, error) {
	s := &scanner{buf: payload}

	s.skipSpace()
	if err := s.expect('{'); err != nil {
		return Reply{}, err
	}

	var r Reply
	var err error

	if r.Temperature, err = s.intField(fieldTemperature, false); err != nil {
		return Reply{}, err
	}
	if r.Humidity, err = s.intField(fieldHumidity, true); err != nil {
		return Reply{}, err
	}
	if r.Mood, err = s.stringField(fieldMood); err != nil {
		return Reply{}, err
	}

	s.skipSpace()
	if err := s.expect('}'); err != nil {
		return Reply{}, err
	}
	s.skipSpace()
	if !s.done() {
		return Reply{}, s.fail("trailing data")
	}

	return r, nil
}

// scanner walks a byte slice with explicit bounds checks. Every read
// reports ErrMalformedPayload at end of input instead of indexing past it.
type scanner struct {
	buf []byte
	pos int
}

func (s *scanner) done() bool {
	return s.pos >= len(s.buf)
}

func (s *scanner) fail(what string) error {
	return fmt.Errorf("%w: %s at offset %d", ErrMalformedPayload, what, s.pos)
}

func (s *scanner) skipSpace() {
	for !s.done() {
		switch s.buf[s.pos] {
		case ' ', '\t', '\r', '\n':
			s.pos++
		default:
			return
		}
	}
}

func (s *scanner) expect(c byte) error {
	if s.done() {
		return s.fail(fmt.Sprintf("expected %q, got end of input", c))
	}
	if s.buf[s.pos] != c {
		return s.fail(fmt.Sprintf("expected %q, got %q", c, s.buf[s.pos]))
	}
	s.pos++
	return nil
}

// quoted reads a '"'-delimited run with no escape handling.
func (s *scanner) quoted() (string, error) {
	if err := s.expect('"'); err != nil {
		return "", err
	}
	start := s.pos
	for !s.done() {
		if s.buf[s.pos] == '"' {
			text := string(s.buf[start:s.pos])
			s.pos++
			return text, nil
		}
		s.pos++
	}
	return "", s.fail("unterminated string")
}

// integer reads an optional '-' followed by at least one digit.
func (s *scanner) integer() (int, error) {
	start := s.pos
	if !s.done() && s.buf[s.pos] == '-' {
		s.pos++
	}
	digitsStart := s.pos
	for !s.done() && s.buf[s.pos] >= '0' && s.buf[s.pos] <= '9' {
		s.pos++
	}
	digits := s.pos - digitsStart
	if digits == 0 {
		return 0, s.fail("expected digits")
	}
	if digits > maxIntDigits {
		return 0, s.fail("number too long")
	}
	n, err := strconv.Atoi(string(s.buf[start:s.pos]))
	if err != nil {
		return 0, s.fail(err.Error())
	}
	return n, nil
}

// key reads `"name" :` and checks the name. Every field after the first
// is preceded by a comma.
func (s *scanner) key(name string, leadingComma bool) error {
	if leadingComma {
		s.skipSpace()
		if err := s.expect(','); err != nil {
			return err
		}
	}
	s.skipSpace()
	got, err := s.quoted()
	if err != nil {
		return err
	}
	if got != name {
		return s.fail(fmt.Sprintf("field %q where %q was expected", got, name))
	}
	s.skipSpace()
	if err := s.expect(':'); err != nil {
		return err
	}
	s.skipSpace()
	return nil
}

func (s *scanner) intField(name string, leadingComma bool) (int, error) {
	if err := s.key(name, leadingComma); err != nil {
		return 0, err
	}
	return s.integer()
}

func (s *scanner) stringField(name string) (string, error) {
	if err := s.key(name, true); err != nil {
		return "", err
	}
	return s.quoted()
}
