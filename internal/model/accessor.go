package model

import (
	"reflect"
	"time"
	"unsafe"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"dataflow/internal/bulkerr"
)

// Accessor reads one field from a record addressed by an unsafe.Pointer to
// the struct. Read returns nil for absent values (nil pointer, nil slice or
// map). IsZero reports whether the field holds its type's default value,
// counting absent values as default.
//
// Accessors are built once per field from the field offset and a generic
// reader for the concrete type; no reflection happens per call.
type Accessor struct {
	Read   func(rec unsafe.Pointer) any
	IsZero func(rec unsafe.Pointer) bool
}

type compiler func(off uintptr, nullable bool) Accessor

var compilers = map[reflect.Type]compiler{
	reflect.TypeFor[bool]():           compileComparable[bool],
	reflect.TypeFor[int16]():          compileComparable[int16],
	reflect.TypeFor[int32]():          compileComparable[int32],
	reflect.TypeFor[int64]():          compileComparable[int64],
	reflect.TypeFor[int]():            compileComparable[int],
	reflect.TypeFor[float32]():        compileComparable[float32],
	reflect.TypeFor[float64]():        compileComparable[float64],
	reflect.TypeFor[byte]():           compileComparable[byte],
	reflect.TypeFor[string]():         compileComparable[string],
	reflect.TypeFor[time.Duration]():  compileComparable[time.Duration],
	reflect.TypeFor[uuid.UUID]():      compileComparable[uuid.UUID],
	reflect.TypeFor[pgtype.Numeric](): compileComparable[pgtype.Numeric],
	reflect.TypeFor[time.Time]():      compileTime,
	reflect.TypeFor[[]byte]():         compileBytes,
	reflect.TypeFor[map[string]any](): compileMap,
}

// Compile builds the accessor for f. Host types without a reader fail with
// *bulkerr.UnsupportedTypeError.
func Compile(f Field) (Accessor, error) {
	c, ok := compilers[f.Underlying]
	if !ok {
		return Accessor{}, &bulkerr.UnsupportedTypeError{HostType: f.HostType.String()}
	}
	ptr := f.HostType.Kind() == reflect.Pointer
	return c(f.Offset, ptr), nil
}

func compileComparable[F comparable](off uintptr, ptr bool) Accessor {
	var zero F
	if ptr {
		return Accessor{
			Read: func(rec unsafe.Pointer) any {
				p := *(**F)(unsafe.Add(rec, off))
				if p == nil {
					return nil
				}
				return *p
			},
			IsZero: func(rec unsafe.Pointer) bool {
				p := *(**F)(unsafe.Add(rec, off))
				return p == nil || *p == zero
			},
		}
	}
	return Accessor{
		Read: func(rec unsafe.Pointer) any {
			return *(*F)(unsafe.Add(rec, off))
		},
		IsZero: func(rec unsafe.Pointer) bool {
			return *(*F)(unsafe.Add(rec, off)) == zero
		},
	}
}

// time.Time carries a location pointer, so equality is checked with IsZero.
func compileTime(off uintptr, ptr bool) Accessor {
	if ptr {
		return Accessor{
			Read: func(rec unsafe.Pointer) any {
				p := *(**time.Time)(unsafe.Add(rec, off))
				if p == nil {
					return nil
				}
				return *p
			},
			IsZero: func(rec unsafe.Pointer) bool {
				p := *(**time.Time)(unsafe.Add(rec, off))
				return p == nil || p.IsZero()
			},
		}
	}
	return Accessor{
		Read: func(rec unsafe.Pointer) any {
			return *(*time.Time)(unsafe.Add(rec, off))
		},
		IsZero: func(rec unsafe.Pointer) bool {
			return (*time.Time)(unsafe.Add(rec, off)).IsZero()
		},
	}
}

func compileBytes(off uintptr, ptr bool) Accessor {
	load := func(rec unsafe.Pointer) []byte {
		if ptr {
			p := *(**[]byte)(unsafe.Add(rec, off))
			if p == nil {
				return nil
			}
			return *p
		}
		return *(*[]byte)(unsafe.Add(rec, off))
	}
	return Accessor{
		Read: func(rec unsafe.Pointer) any {
			if b := load(rec); b != nil {
				return b
			}
			return nil
		},
		IsZero: func(rec unsafe.Pointer) bool { return len(load(rec)) == 0 },
	}
}

func compileMap(off uintptr, ptr bool) Accessor {
	load := func(rec unsafe.Pointer) map[string]any {
		if ptr {
			p := *(**map[string]any)(unsafe.Add(rec, off))
			if p == nil {
				return nil
			}
			return *p
		}
		return *(*map[string]any)(unsafe.Add(rec, off))
	}
	return Accessor{
		Read: func(rec unsafe.Pointer) any {
			if m := load(rec); m != nil {
				return m
			}
			return nil
		},
		IsZero: func(rec unsafe.Pointer) bool { return len(load(rec)) == 0 },
	}
}
