// Package version carries build identity, overridable via ldflags.
package version

var (
	AppName        = "BotCrew"
	AppDescription = "A crew of Discord bots behind one command dispatcher"
	BuildDate      = ""
	GoVersion      = ""
)
