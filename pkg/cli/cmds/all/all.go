// Package all imports all command providers.
package all

import (
	_ "github.com/atsaudio/atsbt/pkg/cli/cmds/bt"
	_ "github.com/atsaudio/atsbt/pkg/cli/cmds/media"
)
