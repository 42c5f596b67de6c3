package presence

import (
	"encoding/json"
	"strings"

	"TeamSync/logger"

	"github.com/nats-io/nats.go"
)

const relaySubjectPrefix = "presence.deliver."

// Relay broadcasts delivery frames across horizontally scaled gateway
// instances. The routing instance decides live-vs-buffer from the shared
// registry and publishes one message per target user; every instance,
// the publisher included, then pushes to its own local transports via
// its subscription. With a relay configured there is exactly one
// delivery path, so no user gets a frame twice.
type Relay struct {
	nc    *nats.Conn
	table *ConnTable
	sub   *nats.Subscription
}

func NewRelay(nc *nats.Conn, table *ConnTable) *Relay {
	return &Relay{nc: nc, table: table}
}

// relayMsg carries the exclusion through the wire so the instance owning
// the sender's connection can skip it.
type relayMsg struct {
	Exclude string `json:"exclude,omitempty"`
	Frame   []byte `json:"frame"`
}

// Start subscribes to the per-user delivery subjects.
func (r *Relay) Start() error {
	sub, err := r.nc.Subscribe(relaySubjectPrefix+"*", func(m *nats.Msg) {
		userID := strings.TrimPrefix(m.Subject, relaySubjectPrefix)
		if userID == "" {
			return
		}
		var rm relayMsg
		if err := json.Unmarshal(m.Data, &rm); err != nil {
			logger.Warnf("[relay] bad frame subject=%s err=%v", m.Subject, err)
			return
		}
		for _, c := range r.table.ListUser(userID) {
			if c.ID == rm.Exclude {
				continue
			}
			if err := c.Push(rm.Frame); err != nil {
				logger.Warnf("[relay] push user=%s conn=%s err=%v", userID, c.ID, err)
			}
		}
	})
	if err != nil {
		return err
	}
	r.sub = sub
	return nil
}

func (r *Relay) Stop() {
	if r.sub != nil {
		_ = r.sub.Unsubscribe()
		r.sub = nil
	}
}

// Publish sends one delivery frame for userID to every gateway instance.
func (r *Relay) Publish(userID, excludeConnID string, frame []byte) {
	data, err := json.Marshal(relayMsg{Exclude: excludeConnID, Frame: frame})
	if err != nil {
		logger.Warnf("[relay] marshal user=%s err=%v", userID, err)
		return
	}
	if err := r.nc.Publish(relaySubjectPrefix+userID, data); err != nil {
		logger.Warnf("[relay] publish user=%s err=%v", userID, err)
	}
}
