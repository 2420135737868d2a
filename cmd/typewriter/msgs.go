package typewriter

import (
	_ "embed"
	"strings"
)

var (
	//go:embed msgs/usage-template.txt
	msgUsageTemplateRaw string
	// MsgUsageTemplate renders command usage through the template
	// funcs registered by initTemplateFormatting
	MsgUsageTemplate = strings.TrimSpace(msgUsageTemplateRaw)
)
