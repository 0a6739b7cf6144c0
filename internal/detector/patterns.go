package detector

import "regexp"

var ssidPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(^|[-_\s])(dji|mavic|phantom|inspire|matrice|mini)([-_\s]|$)`),
	regexp.MustCompile(`(?i)(^|[-_\s])(parrot|anafi|bebop)([-_\s]|$)`),
	regexp.MustCompile(`(?i)(^|[-_\s])(autel|evo)([-_\s]|$)`),
	regexp.MustCompile(`(?i)(^|[-_\s])(skydio|yuneec)([-_\s]|$)`),
	regexp.MustCompile(`(?i)(^|[-_\s])(uas|uav|drone|rid|opendroneid)([-_\s]|$)`),
}

var droneOUIPrefixes = map[string]string{
	"60:60:1F": "DJI",
	"90:3A:E6": "DJI",
	"34:D2:62": "DJI",
	"90:3A:AF": "DJI",
	"00:12:1C": "Parrot",
	"90:03:B7": "Parrot",
	"48:1C:B9": "Autel",
	"AC:89:95": "Skydio",
}

var btNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(dji|mavic|phantom|inspire|matrice|mini)`),
	regexp.MustCompile(`(?i)(parrot|anafi|bebop)`),
	regexp.MustCompile(`(?i)(autel|evo)`),
	regexp.MustCompile(`(?i)(skydio|yuneec)`),
	regexp.MustCompile(`(?i)(remote\s?id|opendroneid|uas|uav|drone)`),
}

var remoteIDUUIDHints = map[string]bool{"fffa": true, "faff": true, "fffb": true}

var rfFreqHintsMHz = []float64{315.0, 433.92, 868.0, 915.0, 1200.0, 2400.0, 5800.0}

var rfFreqTextPattern = regexp.MustCompile(`(?i)([0-9]{2,4}(?:\.[0-9]+)?)\s*MHz`)
