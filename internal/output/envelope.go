// Package output defines the uniform result envelope produced by every
// command and renders it in the supported output formats.
package output

import "sort"

// Field is one named value of a record. Fields keep their declaration
// order so table columns come out in the order the command defined them.
type Field struct {
	Name  string
	Value interface{}
}

// Record is one homogeneous result row.
type Record struct {
	fields []Field
	index  map[string]int
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{index: make(map[string]int)}
}

// Set appends a field, or replaces its value if the name already exists.
// Order is the order of first insertion.
func (r *Record) Set(name string, value interface{}) *Record {
	if i, ok := r.index[name]; ok {
		r.fields[i].Value = value
		return r
	}
	r.index[name] = len(r.fields)
	r.fields = append(r.fields, Field{Name: name, Value: value})
	return r
}

// Get returns the value of a field and whether it exists.
func (r *Record) Get(name string) (interface{}, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.fields[i].Value, true
}

// Fields returns the fields in declaration order.
func (r *Record) Fields() []Field {
	return r.fields
}

// Names returns the field names in declaration order.
func (r *Record) Names() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// RecordFromMap builds a record with the map's keys in sorted order, with
// the given names (when present) pulled to the front in their given order.
// JSON objects lose key order on decode; this keeps renders deterministic.
func RecordFromMap(m map[string]interface{}, first ...string) *Record {
	rec := NewRecord()
	for _, name := range first {
		if v, ok := m[name]; ok {
			rec.Set(name, v)
		}
	}
	rest := make([]string, 0, len(m))
	for name := range m {
		if _, done := rec.Get(name); !done {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		rec.Set(name, m[name])
	}
	return rec
}

// ErrorKind classifies a command failure. The kinds map one-to-one onto
// process exit codes in the cmd package.
type ErrorKind string

const (
	ErrInvalidArgument ErrorKind = "InvalidArgument"
	ErrUnknownCommand  ErrorKind = "UnknownCommand"
	ErrAuthentication  ErrorKind = "AuthenticationError"
	ErrConnectivity    ErrorKind = "ConnectivityError"
	ErrNotFound        ErrorKind = "NotFound"
	ErrAmbiguousName   ErrorKind = "AmbiguousName"
	ErrRemoteOperation ErrorKind = "RemoteOperationError"
	ErrTimeout         ErrorKind = "OperationTimeout"
)

// Failure describes why a command did not succeed.
type Failure struct {
	Kind    ErrorKind
	Message string
	// FaultCode is the remote-reported fault code, verbatim, when the
	// console processed and rejected the operation.
	FaultCode string
	// Candidates lists conflicting matches for AmbiguousName failures.
	Candidates []string
}

func (f *Failure) Error() string {
	return f.Message
}

// Envelope is the uniform wrapper around a command's result: either a
// sequence of records or a failure, never both.
type Envelope struct {
	// Kind names what the records are ("partitions", "cpcs"); it feeds
	// the empty-result notice.
	Kind    string
	Records []*Record
	Failure *Failure
	// Message is an optional confirmation line for commands that succeed
	// without producing records ("Partition PART1 started").
	Message string
}

// OK reports whether the envelope carries a success.
func (e *Envelope) OK() bool {
	return e.Failure == nil
}

// Success builds a success envelope over records.
func Success(kind string, records ...*Record) *Envelope {
	return &Envelope{Kind: kind, Records: records}
}

// Confirmation builds a record-less success with a human message.
func Confirmation(message string) *Envelope {
	return &Envelope{Message: message}
}

// Fail builds a failure envelope.
func Fail(kind ErrorKind, message string) *Envelope {
	return &Envelope{Failure: &Failure{Kind: kind, Message: message}}
}
