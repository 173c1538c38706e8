package model

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// TallyEntry is the number of times an option position was chosen.
type TallyEntry struct {
	Key   string
	Count int
}

// Tally maps option positions (decimal strings) to counts. Unlike a Go map
// it keeps its keys in the order they were added or decoded, which is the
// order a chart legend is drawn in.
type Tally []TallyEntry

func (t Tally) Get(key string) (int, bool) {
	for _, e := range t {
		if e.Key == key {
			return e.Count, true
		}
	}
	return 0, false
}

// Add increments key by n, appending it if it is not present yet.
func (t *Tally) Add(key string, n int) {
	for i := range *t {
		if (*t)[i].Key == key {
			(*t)[i].Count += n
			return
		}
	}
	*t = append(*t, TallyEntry{Key: key, Count: n})
}

func (t *Tally) set(key string, n int) {
	for i := range *t {
		if (*t)[i].Key == key {
			(*t)[i].Count = n
			return
		}
	}
	*t = append(*t, TallyEntry{Key: key, Count: n})
}

func (t Tally) Keys() []string {
	keys := make([]string, len(t))
	for i, e := range t {
		keys[i] = e.Key
	}
	return keys
}

func (t Tally) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(e.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (t *Tally) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*t = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("tally: expected object, got %v", tok)
	}

	out := Tally{}
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("tally: expected key, got %v", tok)
		}

		var n json.Number
		if err = dec.Decode(&n); err != nil {
			return fmt.Errorf("tally: key %q: %w", key, err)
		}
		count, err := n.Int64()
		if err != nil {
			return fmt.Errorf("tally: key %q: %w", key, err)
		}
		out.set(key, int(count))
	}
	if _, err = dec.Token(); err != nil {
		return err
	}

	*t = out
	return nil
}

// QuestionTally is the tally of one question, keyed by question order.
type QuestionTally struct {
	Order int   `json:"question_order"`
	Stats Tally `json:"stats"`
}

// TallyReport is the aggregate statistics of a survey.
type TallyReport []QuestionTally

// For returns the tally of the question at order, if any.
func (r TallyReport) For(order int) (Tally, bool) {
	for _, qt := range r {
		if qt.Order == order {
			return qt.Stats, true
		}
	}
	return nil, false
}
