package control

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/tabpilot/bridge/internal/shared/types"
)

// The session payloads are ordinary execute code strings; the peer-side
// runtime exposes window.__tabpilot__ helpers that interpret them. The
// bridge core never looks inside them again after this point.

func beginSessionCode(cfg types.ControlConfig, target *types.TargetLocator) string {
	cfgJSON, err := sonic.MarshalString(cfg)
	if err != nil {
		cfgJSON = "{}"
	}
	code := fmt.Sprintf("window.__tabpilot__.controlStart(%s)", cfgJSON)

	if target != nil {
		if locJSON, err := sonic.MarshalString(target); err == nil {
			// Focus restore is best-effort; the locator may no longer
			// resolve on the reloaded page.
			code += fmt.Sprintf(";window.__tabpilot__.restoreFocus(%s)", locJSON)
		}
	}
	return code
}

func endSessionCode() string {
	return "window.__tabpilot__.controlStop()"
}

func directiveCode(name string, args map[string]interface{}) string {
	nameJSON, err := sonic.MarshalString(name)
	if err != nil {
		nameJSON = `""`
	}
	argsJSON := "{}"
	if len(args) > 0 {
		if s, err := sonic.MarshalString(args); err == nil {
			argsJSON = s
		}
	}
	return fmt.Sprintf("window.__tabpilot__.directive(%s,%s)", nameJSON, argsJSON)
}
