package ripple

import "reflect"

// Record is the aggregate type eligible for recursive observation. A value
// stored in a Store nests if and only if its dynamic type is Record: structs,
// slices, and even bare map[string]any values are opaque, stored and returned
// unchanged with their interior mutations invisible. Callers declare the
// observation depth of their data by choosing the type.
type Record map[string]any

// identical reports whether two values are the same for change-detection
// purposes. Comparable dynamic types use interface equality, Records and
// other maps use map identity, and everything else is never identical. The
// conservative branch can cause a redundant signal; it can never suppress a
// real one.
func identical(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	if ta.Kind() == reflect.Map {
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	return false
}
