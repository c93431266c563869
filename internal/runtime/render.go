package runtime

import (
	"github.com/aretw0/ussdflow/pkg/action"
)

// render substitutes {name} placeholders in msg. Values set for the current
// event shadow session variables; unknown names render empty.
func (e *Engine) render(t *turn, msg string) string {
	return action.Expand(msg, func(name string) (string, bool) {
		if v, ok := t.transient[name]; ok {
			return v, true
		}
		v, ok := t.sess.Variables[name]
		return v, ok
	})
}
