package decode

import (
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/jsonc"

	"github.com/atlassian/zbxshipper"
)

// nullLeaf is what a null turns into.
const nullLeaf = zbxshipper.Leaf("null")

// JSON reads a JSON document. Objects and arrays become nodes (array elements keyed by index), numbers keep their
// literal text and null becomes "null".
func JSON(r io.Reader) (zbxshipper.Value, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return JSONBytes(b)
}

// JSONBytes is JSON for a document already in memory.
func JSONBytes(b []byte) (zbxshipper.Value, error) {
	doc := jsonc.ToJSON(b)
	iter := jsoniter.ParseBytes(jsoniter.ConfigCompatibleWithStandardLibrary, doc)
	if iter.WhatIsNext() == jsoniter.InvalidValue {
		return nil, errors.New("decode json: empty or invalid document")
	}
	// ReadNumber takes any run of number characters, so literals are checked by a strict pass first. The newline
	// ends a top level number without the validator running into EOF.
	if !jsoniter.ConfigCompatibleWithStandardLibrary.Valid(append(doc[:len(doc):len(doc)], '\n')) {
		return nil, errors.New("decode json: malformed document")
	}
	v := readJSONValue(iter)
	if iter.Error != nil && iter.Error != io.EOF {
		return nil, fmt.Errorf("decode json: %w", iter.Error)
	}
	// only whitespace may follow, which leaves the iterator at EOF
	if iter.WhatIsNext() != jsoniter.InvalidValue || iter.Error != io.EOF {
		return nil, errors.New("decode json: unexpected data after the document")
	}
	return v, nil
}

func readJSONValue(iter *jsoniter.Iterator) zbxshipper.Value {
	switch iter.WhatIsNext() {
	case jsoniter.ObjectValue:
		n := zbxshipper.NewNode()
		iter.ReadObjectCB(func(iter *jsoniter.Iterator, key string) bool {
			n.Set(key, readJSONValue(iter))
			return readOK(iter)
		})
		return n
	case jsoniter.ArrayValue:
		n := zbxshipper.NewNode()
		iter.ReadArrayCB(func(iter *jsoniter.Iterator) bool {
			n.Set(strconv.Itoa(n.Len()), readJSONValue(iter))
			return readOK(iter)
		})
		return n
	case jsoniter.StringValue:
		return zbxshipper.Leaf(iter.ReadString())
	case jsoniter.NumberValue:
		return zbxshipper.Leaf(iter.ReadNumber().String())
	case jsoniter.BoolValue:
		return zbxshipper.Leaf(strconv.FormatBool(iter.ReadBool()))
	case jsoniter.NilValue:
		iter.ReadNil()
		return nullLeaf
	default:
		iter.ReportError("decode json", "unexpected value")
		return nil
	}
}

// readOK reports whether reading may go on. EOF is not an error yet: the enclosing object or array reports the
// missing delimiter itself.
func readOK(iter *jsoniter.Iterator) bool {
	return iter.Error == nil || iter.Error == io.EOF
}
