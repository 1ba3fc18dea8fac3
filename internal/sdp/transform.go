package sdp

import pionsdp "github.com/pion/sdp/v3"

// iceAttributeKeys are stripped from (or merged into) a session or
// media description by anonymize/mergeLocalICE.
var iceAttributeKeys = map[string]bool{
	"ice-ufrag":   true,
	"ice-pwd":     true,
	"fingerprint": true,
	"candidate":   true,
}

func parseSDP(raw string) (*pionsdp.SessionDescription, error) {
	sd := &pionsdp.SessionDescription{}
	if err := sd.Unmarshal([]byte(raw)); err != nil {
		return nil, err
	}
	return sd, nil
}

// countMedia reports how many audio and video media sections a
// description carries. Only the presence of at least one of each
// matters: only one of each is negotiated.
func countMedia(sd *pionsdp.SessionDescription) (audio, video int) {
	for _, md := range sd.MediaDescriptions {
		switch md.MediaName.Media {
		case "audio":
			audio++
		case "video":
			video++
		}
	}
	return audio, video
}

func streamCount(audio, video int) int {
	n := 0
	if audio > 0 {
		n++
	}
	if video > 0 {
		n++
	}
	return n
}

// anonymize strips ICE credentials, the DTLS fingerprint, and
// candidate lines from sd in place.
func anonymize(sd *pionsdp.SessionDescription) {
	sd.Attributes = filterAttributes(sd.Attributes)
	for _, md := range sd.MediaDescriptions {
		md.Attributes = filterAttributes(md.Attributes)
	}
}

func filterAttributes(attrs []pionsdp.Attribute) []pionsdp.Attribute {
	out := make([]pionsdp.Attribute, 0, len(attrs))
	for _, a := range attrs {
		if iceAttributeKeys[a.Key] {
			continue
		}
		out = append(out, a)
	}
	return out
}

// mergeLocalICE attaches the gateway's local ICE credentials and DTLS
// fingerprint at session level, and the ICE credentials and gathered
// candidates to every media section of sd.
func mergeLocalICE(sd *pionsdp.SessionDescription, ufrag, pwd, fingerprintAlgo, fingerprintValue string, candidates []string) {
	sd.Attributes = append(sd.Attributes,
		pionsdp.Attribute{Key: "ice-ufrag", Value: ufrag},
		pionsdp.Attribute{Key: "ice-pwd", Value: pwd},
		pionsdp.Attribute{Key: "fingerprint", Value: fingerprintAlgo + " " + fingerprintValue},
	)
	for _, md := range sd.MediaDescriptions {
		md.Attributes = append(md.Attributes,
			pionsdp.Attribute{Key: "ice-ufrag", Value: ufrag},
			pionsdp.Attribute{Key: "ice-pwd", Value: pwd},
		)
		for _, c := range candidates {
			md.Attributes = append(md.Attributes, pionsdp.Attribute{Key: "candidate", Value: c})
		}
	}
}

// installRemoteCandidates feeds every candidate line found in sd's
// media sections to the ICE session (audio/video streams, components
// 1 and 2 — collapsed here into one bundled agent per handle).
func installRemoteCandidates(session IceSession, sd *pionsdp.SessionDescription) {
	for _, md := range sd.MediaDescriptions {
		for _, a := range md.Attributes {
			if a.Key != "candidate" {
				continue
			}
			_ = session.AddRemoteCandidate(a.Value)
		}
	}
}
