package serializer

import "reflect"

var mapType = reflect.TypeOf(map[string]any(nil))
