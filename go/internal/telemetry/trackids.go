package telemetry

// trackIDNames maps the game's numeric track ids to the official circuit
// names used by the leaderboard. Ids follow the F1 24 telemetry track
// dictionary.
var trackIDNames = map[int]string{
	0:  "Albert Park Circuit",
	2:  "Shanghai International Circuit",
	3:  "Bahrain International Circuit",
	4:  "Circuit de Barcelona-Catalunya",
	5:  "Circuit de Monaco",
	6:  "Circuit Gilles Villeneuve",
	7:  "Silverstone Circuit",
	9:  "Hungaroring",
	10: "Circuit de Spa-Francorchamps",
	11: "Autodromo Nazionale Monza",
	12: "Marina Bay Street Circuit",
	13: "Suzuka International Racing Course",
	14: "Yas Marina Circuit",
	15: "Circuit of the Americas",
	16: "Autódromo José Carlos Pace",
	17: "Red Bull Ring",
	19: "Autódromo Hermanos Rodríguez",
	20: "Baku City Circuit",
	26: "Circuit Zandvoort",
	27: "Autodromo Enzo e Dino Ferrari",
	29: "Jeddah Corniche Circuit",
	30: "Miami International Autodrome",
	31: "Las Vegas Street Circuit",
	32: "Losail International Circuit",
}

// ResolveTrack returns the official circuit name for a telemetry track id.
func ResolveTrack(trackID int) (string, bool) {
	name, ok := trackIDNames[trackID]
	return name, ok
}
