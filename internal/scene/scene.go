// Package scene classifies an agent's raw surroundings into the signals
// the decision tiers consume: location type, crowdedness, privacy, social
// opportunities and combined behavior modifiers.
package scene

import (
	"sort"
	"strings"
	"time"
)

// ConversationDistance is how close another agent must be to talk to.
const ConversationDistance = 3.0

// clusterDelta is the mutual-proximity threshold for group detection.
const clusterDelta = 2.0

// Nearby describes one other agent in perception range.
type Nearby struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
	Mood     float64 `json:"mood"` // -1 to 1
}

// RawContext is the unprocessed environment snapshot handed to Analyze.
type RawContext struct {
	Location string    `json:"location"`
	Now      time.Time `json:"now"`
	Nearby   []Nearby  `json:"nearby"`

	// PrivacySet marks Privacy as supplied rather than inferred.
	Privacy    Privacy `json:"privacy,omitempty"`
	PrivacySet bool    `json:"privacy_set,omitempty"`

	// Resources available at the location (coffee machine, desks, ...).
	Resources []string `json:"resources,omitempty"`
}

// LocationType is the closed set of recognized location classes.
type LocationType string

const (
	LocationOffice    LocationType = "office"
	LocationBreakRoom LocationType = "break_room"
	LocationMeeting   LocationType = "meeting_room"
	LocationCafeteria LocationType = "cafeteria"
	LocationCorridor  LocationType = "corridor"
	LocationLounge    LocationType = "lounge"
	LocationOutside   LocationType = "outside"
	LocationUnknown   LocationType = "unknown"
)

// locationKeywords classifies free-text location names by containment.
// First match wins, so more specific words come first.
var locationKeywords = []struct {
	word string
	typ  LocationType
}{
	{"break", LocationBreakRoom},
	{"kitchen", LocationBreakRoom},
	{"meeting", LocationMeeting},
	{"conference", LocationMeeting},
	{"cafeteria", LocationCafeteria},
	{"canteen", LocationCafeteria},
	{"lunch", LocationCafeteria},
	{"corridor", LocationCorridor},
	{"hallway", LocationCorridor},
	{"lounge", LocationLounge},
	{"sofa", LocationLounge},
	{"park", LocationOutside},
	{"outside", LocationOutside},
	{"garden", LocationOutside},
	{"office", LocationOffice},
	{"desk", LocationOffice},
	{"workstation", LocationOffice},
}

// ClassifyLocation maps a location string to its type.
func ClassifyLocation(location string) LocationType {
	lower := strings.ToLower(location)
	for _, kw := range locationKeywords {
		if strings.Contains(lower, kw.word) {
			return kw.typ
		}
	}
	return LocationUnknown
}

// locationProfile carries a location type's static behavior multipliers.
type locationProfile struct {
	Work      float64
	Social    float64
	Rest      float64
	Formality float64 // 0 casual .. 1 formal
}

var locationProfiles = map[LocationType]locationProfile{
	LocationOffice:    {Work: 1.4, Social: 0.8, Rest: 0.6, Formality: 0.8},
	LocationBreakRoom: {Work: 0.5, Social: 1.3, Rest: 1.3, Formality: 0.2},
	LocationMeeting:   {Work: 1.2, Social: 1.0, Rest: 0.4, Formality: 0.9},
	LocationCafeteria: {Work: 0.4, Social: 1.4, Rest: 1.1, Formality: 0.2},
	LocationCorridor:  {Work: 0.6, Social: 1.0, Rest: 0.7, Formality: 0.5},
	LocationLounge:    {Work: 0.5, Social: 1.3, Rest: 1.4, Formality: 0.1},
	LocationOutside:   {Work: 0.3, Social: 1.1, Rest: 1.5, Formality: 0.0},
	LocationUnknown:   {Work: 1.0, Social: 1.0, Rest: 1.0, Formality: 0.5},
}

// Crowdedness buckets the nearby-agent count into five named levels.
type Crowdedness string

const (
	CrowdEmpty    Crowdedness = "empty"
	CrowdQuiet    Crowdedness = "quiet"
	CrowdModerate Crowdedness = "moderate"
	CrowdBusy     Crowdedness = "busy"
	CrowdPacked   Crowdedness = "packed"
)

// CrowdednessFor buckets a nearby count.
func CrowdednessFor(count int) Crowdedness {
	switch {
	case count == 0:
		return CrowdEmpty
	case count <= 2:
		return CrowdQuiet
	case count <= 4:
		return CrowdModerate
	case count <= 6:
		return CrowdBusy
	default:
		return CrowdPacked
	}
}

// Privacy describes how private the current spot is.
type Privacy string

const (
	PrivacyPrivate Privacy = "private"
	PrivacySemi    Privacy = "semi_private"
	PrivacyPublic  Privacy = "public"
)

func inferPrivacy(nearbyCount int) Privacy {
	switch {
	case nearbyCount == 0:
		return PrivacyPrivate
	case nearbyCount <= 2:
		return PrivacySemi
	default:
		return PrivacyPublic
	}
}

// Opportunity is an individually-approachable nearby agent.
type Opportunity struct {
	AgentID         string  `json:"agent_id"`
	Name            string  `json:"name"`
	Distance        float64 `json:"distance"`
	Approachability float64 `json:"approachability"` // 0-1
}

// Cluster is a proximity-based group of nearby agents.
type Cluster struct {
	MemberIDs       []string `json:"member_ids"`
	Approachability float64  `json:"approachability"` // 0-1
}

// Modifiers is the multiplicative combination of every environmental
// signal, consumed by the decision tiers.
type Modifiers struct {
	Work   float64 `json:"work"`
	Social float64 `json:"social"`
	Rest   float64 `json:"rest"`
}

// Scene is the analyzed environment.
type Scene struct {
	Location      LocationType  `json:"location"`
	LocationName  string        `json:"location_name"`
	Crowdedness   Crowdedness   `json:"crowdedness"`
	NearbyCount   int           `json:"nearby_count"`
	Privacy       Privacy       `json:"privacy"`
	Opportunities []Opportunity `json:"opportunities"`
	Clusters      []Cluster     `json:"clusters"`
	Resources     []string      `json:"resources,omitempty"`
	Formality     float64       `json:"formality"`
	Hour          int           `json:"hour"`
	Weekday       time.Weekday  `json:"weekday"`
	Modifiers     Modifiers     `json:"modifiers"`

	// Fast-path gates for the decision tiers.
	GoodForWork        bool `json:"good_for_work"`
	GoodForSocializing bool `json:"good_for_socializing"`
	GoodForNeeds       bool `json:"good_for_needs"`
}

// Analyze classifies a raw environment snapshot.
func Analyze(raw RawContext) *Scene {
	locType := ClassifyLocation(raw.Location)
	profile := locationProfiles[locType]
	count := len(raw.Nearby)

	s := &Scene{
		Location:     locType,
		LocationName: raw.Location,
		Crowdedness:  CrowdednessFor(count),
		NearbyCount:  count,
		Resources:    raw.Resources,
		Formality:    profile.Formality,
		Hour:         raw.Now.Hour(),
		Weekday:      raw.Now.Weekday(),
	}

	if raw.PrivacySet {
		s.Privacy = raw.Privacy
	} else {
		s.Privacy = inferPrivacy(count)
	}

	s.Opportunities = findOpportunities(raw.Nearby)
	s.Clusters = findClusters(raw.Nearby)
	s.Modifiers = combineModifiers(profile, s.Crowdedness)

	s.GoodForWork = s.Modifiers.Work >= 1.0 && s.Crowdedness != CrowdPacked
	s.GoodForSocializing = s.Modifiers.Social >= 1.0 && count > 0
	s.GoodForNeeds = locType == LocationBreakRoom || locType == LocationCafeteria ||
		locType == LocationLounge || hasResource(raw.Resources, "coffee") ||
		hasResource(raw.Resources, "food")
	return s
}

// findOpportunities scores each agent within conversation distance for
// approachability: closer and happier is better.
func findOpportunities(nearby []Nearby) []Opportunity {
	var out []Opportunity
	for _, n := range nearby {
		if n.Distance > ConversationDistance {
			continue
		}
		score := 0.5
		score += n.Mood * 0.3
		score += (ConversationDistance - n.Distance) / ConversationDistance * 0.2
		out = append(out, Opportunity{
			AgentID:         n.ID,
			Name:            n.Name,
			Distance:        n.Distance,
			Approachability: clamp01(score),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Approachability > out[j].Approachability
	})
	return out
}

// findClusters groups nearby agents whose distances differ by at most
// clusterDelta, a cheap stand-in for mutual proximity. Smaller and
// happier groups score higher.
func findClusters(nearby []Nearby) []Cluster {
	if len(nearby) < 2 {
		return nil
	}
	sorted := make([]Nearby, len(nearby))
	copy(sorted, nearby)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Distance < sorted[j].Distance })

	var clusters []Cluster
	var members []Nearby
	flush := func() {
		if len(members) < 2 {
			members = nil
			return
		}
		ids := make([]string, len(members))
		var mood float64
		for i, m := range members {
			ids[i] = m.ID
			mood += m.Mood
		}
		mood /= float64(len(members))
		score := 0.6 + mood*0.3 - float64(len(members)-2)*0.1
		clusters = append(clusters, Cluster{
			MemberIDs:       ids,
			Approachability: clamp01(score),
		})
		members = nil
	}

	for i, n := range sorted {
		if i > 0 && n.Distance-sorted[i-1].Distance > clusterDelta {
			flush()
		}
		members = append(members, n)
	}
	flush()
	return clusters
}

func combineModifiers(p locationProfile, crowd Crowdedness) Modifiers {
	m := Modifiers{Work: p.Work, Social: p.Social, Rest: p.Rest}
	switch crowd {
	case CrowdEmpty:
		m.Social *= 0.3
		m.Rest *= 1.2
	case CrowdQuiet:
		m.Work *= 1.1
	case CrowdBusy:
		m.Work *= 0.8
		m.Social *= 1.1
	case CrowdPacked:
		m.Work *= 0.6
		m.Social *= 1.2
		m.Rest *= 0.7
	}
	return m
}

func hasResource(resources []string, want string) bool {
	for _, r := range resources {
		if strings.Contains(strings.ToLower(r), want) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
