package merge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/skyhist/skypemerge/internal/skypedata"
	"go.uber.org/zap"
)

// BodyFormatter turns a raw message row into the canonical text used for
// cross-database comparison. It is only ever used to build comparison
// keys, never to drive matching beyond that.
type BodyFormatter func(*skypedata.Message) string

// typesIgnoreBody are the structural message types whose rendered body
// depends on locally-cached contact names and therefore cannot be
// compared verbatim across databases. Their comparison text is
// synthesized from raw identity fields instead.
var typesIgnoreBody = map[int64]bool{
	skypedata.MessageTypeGroup:        true,
	skypedata.MessageTypeParticipants: true,
	skypedata.MessageTypeRemove:       true,
	skypedata.MessageTypeLeave:        true,
	skypedata.MessageTypeShareDetail:  true,
}

// Differ computes per-chat diffs between two databases.
type Differ struct {
	// WindowSecs is the clock-skew tolerance for matching messages that
	// carry no remote id: candidates with identical comparison keys and
	// timestamps strictly closer than this many seconds count as the
	// same message.
	WindowSecs int64

	// Format renders message bodies for comparison; defaults to
	// skypedata.BodyText.
	Format BodyFormatter

	logger *zap.Logger
}

// NewDiffer creates a differ with the given fuzzy-match window.
func NewDiffer(windowSecs int, logger *zap.Logger) *Differ {
	if windowSecs <= 0 {
		windowSecs = 180
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Differ{
		WindowSecs: int64(windowSecs),
		Format:     skypedata.BodyText,
		logger:     logger,
	}
}

// difftext builds the comparison key for one message:
// author + "-" + type + "-" + canonical body.
func (df *Differ) difftext(m *skypedata.Message) string {
	var body string
	switch {
	case m.Type == skypedata.MessageTypeLeave:
		body = m.Author
	case typesIgnoreBody[m.Type]:
		body = m.Identities
	default:
		body = df.Format(m)
	}
	return fmt.Sprintf("%s-%d-%s", m.Author, m.Type, body)
}

// ChatDiff compares one chat pair between the two databases. Local
// numeric ids are never consulted: messages match on remote_id plus
// comparison key, or on comparison key plus timestamp proximity when no
// remote id exists; participants match on contact identity.
func (df *Differ) ChatDiff(left, right *skypedata.Database, pair *ChatPair) (*ChatDiff, error) {
	diff := &ChatDiff{Chat: pair}

	var leftMsgs, rightMsgs []*skypedata.Message
	var err error
	if pair.Left != nil {
		if leftMsgs, err = left.Messages(pair.Left); err != nil {
			return nil, &DiffError{ChatIdentity: pair.Identity, Err: err}
		}
	}
	if pair.Right != nil {
		if rightMsgs, err = right.Messages(pair.Right); err != nil {
			return nil, &DiffError{ChatIdentity: pair.Identity, Err: err}
		}
	}

	// One side empty: every message on the other side is trivially
	// missing there, no matching needed.
	switch {
	case len(leftMsgs) == 0:
		diff.RightOnly = rightMsgs
	case len(rightMsgs) == 0:
		diff.LeftOnly = leftMsgs
	default:
		diff.LeftOnly, diff.RightOnly = df.matchMessages(leftMsgs, rightMsgs)
	}

	var leftParts, rightParts []*skypedata.Participant
	if pair.Left != nil {
		leftParts = pair.Left.Participants
	}
	if pair.Right != nil {
		rightParts = pair.Right.Participants
	}
	diff.LeftOnlyParticipants = participantsMissingFrom(leftParts, rightParts)
	diff.RightOnlyParticipants = participantsMissingFrom(rightParts, leftParts)

	sortByTimestamp(diff.LeftOnly)
	sortByTimestamp(diff.RightOnly)
	return diff, nil
}

// msgIndex holds one side's messages grouped for matching.
type msgIndex struct {
	byRemoteID map[int64][]*skypedata.Message
	noRemoteID []*skypedata.Message
	byKey      map[string][]*skypedata.Message
	keys       map[*skypedata.Message]string
}

func (df *Differ) index(msgs []*skypedata.Message) *msgIndex {
	idx := &msgIndex{
		byRemoteID: make(map[int64][]*skypedata.Message),
		byKey:      make(map[string][]*skypedata.Message),
		keys:       make(map[*skypedata.Message]string, len(msgs)),
	}
	for _, m := range msgs {
		if m.RemoteID != 0 {
			idx.byRemoteID[m.RemoteID] = append(idx.byRemoteID[m.RemoteID], m)
		} else {
			idx.noRemoteID = append(idx.noRemoteID, m)
		}
		key := df.difftext(m)
		idx.keys[m] = key
		idx.byKey[key] = append(idx.byKey[key], m)
	}
	return idx
}

// matchMessages runs the two-phase match symmetrically and returns the
// messages unique to each side.
func (df *Differ) matchMessages(leftMsgs, rightMsgs []*skypedata.Message) (leftOnly, rightOnly []*skypedata.Message) {
	li := df.index(leftMsgs)
	ri := df.index(rightMsgs)
	return df.missingFrom(li, ri), df.missingFrom(ri, li)
}

// missingFrom returns the messages of own that have no equivalent in
// other.
func (df *Differ) missingFrom(own, other *msgIndex) []*skypedata.Message {
	var missing []*skypedata.Message

	// Primary phase: remote_id. It is provider-assigned but not unique,
	// so a matching remote_id alone is insufficient; the comparison key
	// must also agree with at least one sibling.
	for remoteID, msgs := range own.byRemoteID {
		candidates := other.byRemoteID[remoteID]
		for _, m := range msgs {
			matched := false
			for _, cand := range candidates {
				if own.keys[m] == other.keys[cand] {
					matched = true
					break
				}
			}
			if !matched {
				missing = append(missing, m)
			}
		}
	}

	// Fallback phase: no remote_id. Same comparison key plus a
	// timestamp within the clock-skew window counts as the same message.
	for _, m := range own.noRemoteID {
		matched := false
		for _, cand := range other.byKey[own.keys[m]] {
			delta := m.Timestamp - cand.Timestamp
			if delta < 0 {
				delta = -delta
			}
			if delta < df.WindowSecs {
				matched = true
				break
			}
		}
		if !matched {
			missing = append(missing, m)
		}
	}
	return missing
}

func participantsMissingFrom(own, other []*skypedata.Participant) []*skypedata.Participant {
	present := make(map[string]bool, len(other))
	for _, p := range other {
		present[p.Identity] = true
	}
	var missing []*skypedata.Participant
	for _, p := range own {
		if !present[p.Identity] {
			missing = append(missing, p)
		}
	}
	return missing
}

func sortByTimestamp(msgs []*skypedata.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].Timestamp != msgs[j].Timestamp {
			return msgs[i].Timestamp < msgs[j].Timestamp
		}
		return msgs[i].ID < msgs[j].ID
	})
}

// ContactsDiff returns the address-book rows unique to each side,
// matched by identity. Account identities never count as missing.
func (df *Differ) ContactsDiff(left, right *skypedata.Database) (leftOnly, rightOnly []*skypedata.Contact, err error) {
	lc, err := left.Contacts()
	if err != nil {
		return nil, nil, err
	}
	rc, err := right.Contacts()
	if err != nil {
		return nil, nil, err
	}
	accounts := map[string]bool{}
	for _, id := range []string{left.AccountIdentity(), right.AccountIdentity()} {
		if id != "" {
			accounts[id] = true
		}
	}
	return contactsMissingFrom(lc, rc, accounts), contactsMissingFrom(rc, lc, accounts), nil
}

func contactsMissingFrom(own, other []*skypedata.Contact, accounts map[string]bool) []*skypedata.Contact {
	present := make(map[string]bool, len(other))
	for _, c := range other {
		present[c.Identity] = true
	}
	var missing []*skypedata.Contact
	for _, c := range own {
		if c.Identity == "" || accounts[c.Identity] || present[c.Identity] {
			continue
		}
		missing = append(missing, c)
	}
	return missing
}

// ContactGroupsDiff returns the groups unique to each side, matched by
// group name.
func (df *Differ) ContactGroupsDiff(left, right *skypedata.Database) (leftOnly, rightOnly []*skypedata.ContactGroup, err error) {
	lg, err := left.ContactGroups()
	if err != nil {
		return nil, nil, err
	}
	rg, err := right.ContactGroups()
	if err != nil {
		return nil, nil, err
	}
	return groupsMissingFrom(lg, rg), groupsMissingFrom(rg, lg), nil
}

func groupsMissingFrom(own, other []*skypedata.ContactGroup) []*skypedata.ContactGroup {
	present := make(map[string]bool, len(other))
	for _, g := range other {
		present[strings.ToLower(g.Name)] = true
	}
	var missing []*skypedata.ContactGroup
	for _, g := range own {
		if !present[strings.ToLower(g.Name)] {
			missing = append(missing, g)
		}
	}
	return missing
}
