// SPDX-License-Identifier: MIT

package validate

// LogLevels are the level names accepted in configuration.
var LogLevels = []string{"trace", "debug", "info", "warn", "error"}

// LogLevel records an error unless value is one of LogLevels.
func (v *Validator) LogLevel(field, value string) {
	v.OneOf(field, value, LogLevels)
}
