package classify

// defaultTables returns the compiled-in classification tables. The
// config file extends these; it never needs to restate them.
func defaultTables() *tables {
	return &tables{
		blacklist: []string{
			// common system/OS processes, matched exact or by prefix
			"kernel_task",
			"launchd",
			"systemd",
			"init",
			"svchost",
			"csrss",
			"wininit",
			"winlogon",
			"dwm",
			"explorer",
			"loginwindow",
			"windowserver",
			"cfprefsd",
			"mds",
			"mdworker",
			"distnoted",
			"com.apple.",
			"kworker",
			"ksoftirqd",
			"migration",
			"dbus-daemon",
			"pipewire",
			"pulseaudio",
			"xorg",
			"gnome-shell",
		},
		categories: map[string]string{
			"chrome":    "browsers",
			"chromium":  "browsers",
			"firefox":   "browsers",
			"safari":    "browsers",
			"msedge":    "browsers",
			"steam":     "games",
			"dota2":     "games",
			"minecraft": "games",
			"roblox":    "games",
			"discord":   "chat",
			"slack":     "chat",
			"zoom":      "chat",
			"code":      "productivity",
			"word":      "productivity",
			"excel":     "productivity",
		},
		icons: map[string]string{
			"browsers":     "globe",
			"games":        "gamepad",
			"chat":         "message",
			"productivity": "briefcase",
			"steam":        "steam",
			"discord":      "discord",
		},
		friendly: map[string]string{
			"chrome":  "Google Chrome",
			"msedge":  "Microsoft Edge",
			"code":    "Visual Studio Code",
			"dota2":   "Dota 2",
			"firefox": "Firefox",
		},
	}
}
