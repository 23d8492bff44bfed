package pdfmodel

// MemStorage is a minimal in-memory ObjectStorage used by this
// module's own tests to stand in for a real PDF parser. It is not
// part of the public contract; production callers bring their own
// ObjectStorage backed by an actual PDF object graph.
type MemStorage struct {
	objects map[Reference]Object
}

// NewMemStorage returns an empty MemStorage.
func NewMemStorage() *MemStorage {
	return &MemStorage{objects: make(map[Reference]Object)}
}

// Put registers obj under ref.
func (s *MemStorage) Put(ref Reference, obj Object) {
	s.objects[ref] = obj
}

func (s *MemStorage) resolve(obj Object) Object {
	if ref, ok := obj.(Reference); ok {
		resolved, ok := s.objects[ref]
		if !ok {
			return nil
		}
		return resolved
	}
	return obj
}

// GetDictionary implements ObjectStorage.
func (s *MemStorage) GetDictionary(ref Reference) (*Dictionary, bool) {
	obj, ok := s.objects[ref]
	if !ok {
		return nil, false
	}
	dict, ok := obj.(*Dictionary)
	return dict, ok
}

// GetObject implements ObjectStorage.
func (s *MemStorage) GetObject(ref Reference) (Object, bool) {
	obj, ok := s.objects[ref]
	return obj, ok
}

// GetString implements ObjectStorage.
func (s *MemStorage) GetString(dict *Dictionary, key string) ([]byte, bool) {
	v := s.resolve(dict.Get(key))
	str, ok := v.(String)
	if !ok {
		return nil, false
	}
	return []byte(str), true
}

// GetInt implements ObjectStorage.
func (s *MemStorage) GetInt(dict *Dictionary, key string) (int64, bool) {
	v := s.resolve(dict.Get(key))
	i, ok := v.(Integer)
	if !ok {
		return 0, false
	}
	return int64(i), true
}

// GetName implements ObjectStorage.
func (s *MemStorage) GetName(dict *Dictionary, key string) (string, bool) {
	v := s.resolve(dict.Get(key))
	name, ok := v.(Name)
	if !ok {
		return "", false
	}
	return string(name), true
}

// GetDict implements ObjectStorage.
func (s *MemStorage) GetDict(dict *Dictionary, key string) (*Dictionary, bool) {
	v := s.resolve(dict.Get(key))
	d, ok := v.(*Dictionary)
	return d, ok
}

// GetTextString implements ObjectStorage. The fixture storage never
// distinguishes PDFDocEncoding from UTF-16BE: values are stored and
// returned as plain Go strings already.
func (s *MemStorage) GetTextString(dict *Dictionary, key string) (string, bool) {
	b, ok := s.GetString(dict, key)
	if !ok {
		return "", false
	}
	return string(b), true
}

// GetIntArray implements ObjectStorage.
func (s *MemStorage) GetIntArray(dict *Dictionary, key string) ([]int64, bool) {
	v := s.resolve(dict.Get(key))
	arr, ok := v.(Array)
	if !ok {
		return nil, false
	}
	out := make([]int64, 0, len(arr))
	for _, item := range arr {
		i, ok := s.resolve(item).(Integer)
		if !ok {
			return nil, false
		}
		out = append(out, int64(i))
	}
	return out, true
}

// GetObjectArray implements ObjectStorage.
func (s *MemStorage) GetObjectArray(dict *Dictionary, key string) ([]Object, bool) {
	v := s.resolve(dict.Get(key))
	arr, ok := v.(Array)
	if !ok {
		return nil, false
	}
	out := make([]Object, 0, len(arr))
	for _, item := range arr {
		out = append(out, s.resolve(item))
	}
	return out, true
}

// MemSignatureField is a fixture SignatureField backed by a MemStorage.
type MemSignatureField struct {
	Ref  Reference
	Name string
	Dict *Dictionary
}

// Reference implements SignatureField.
func (f *MemSignatureField) Reference() Reference { return f.Ref }

// QualifiedName implements SignatureField.
func (f *MemSignatureField) QualifiedName() string { return f.Name }

// Dictionary implements SignatureField.
func (f *MemSignatureField) Dictionary() *Dictionary { return f.Dict }

// MemForm is a fixture Form backed by a fixed field list.
type MemForm struct {
	FormKind FormKind
	Fields   []SignatureField
}

// Kind implements Form.
func (f *MemForm) Kind() FormKind { return f.FormKind }

// Apply implements Form.
func (f *MemForm) Apply(visit func(SignatureField) error) error {
	for _, field := range f.Fields {
		if err := visit(field); err != nil {
			return err
		}
	}
	return nil
}
