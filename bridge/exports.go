package bridge

import (
	"reflect"

	"github.com/traefik/yaegi/interp"

	"github.com/gogpu/hotreload"
)

// hostExports is the harness API visible inside the reloadable module.
// It is exposed under both the module path and a short "harness" path so a
// module source can use either:
//
//	import "github.com/gogpu/hotreload"
//	import "harness"
//
// Yaegi expects keys as "importPath/pkgName".
func hostExports() interp.Exports {
	symbols := map[string]reflect.Value{
		"State":              reflect.ValueOf((*hotreload.State)(nil)),
		"RenderContext":      reflect.ValueOf((*hotreload.RenderContext)(nil)),
		"StateSchemaVersion": reflect.ValueOf(hotreload.StateSchemaVersion),
		"Logger":             reflect.ValueOf(hotreload.Logger),
	}

	return interp.Exports{
		"github.com/gogpu/hotreload/hotreload": symbols,
		"harness/harness":                      symbols,
	}
}
