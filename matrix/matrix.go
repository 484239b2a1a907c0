package matrix

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"roomline/config"
	"roomline/matrix/history"
	"roomline/matrix/rooms"
	"roomline/matrix/timeline"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

type ClientWrapper struct {
	client *mautrix.Client //the matrix client which communicates with the homeserver

	syncer *Syncer //feeds sync responses into the room cache

	history history.Store //responsible for storing event history

	rooms *rooms.RoomCache //rooms of this session, each owning its timeline

	metrics *timeline.Metrics

	config *config.Config // persist user account information and configurations

	logger zerolog.Logger

	running bool

	stop chan bool
}

var (
	ErrNoHomeserver = errors.New("no homeserver entered")
	ErrNotLoggedIn  = errors.New("not logged in")
	ErrNoPassword   = errors.New("homeserver doesn't support password login")
)

// NewWrapper creates a new ClientWrapper for the given config. metrics may
// be nil.
func NewWrapper(config *config.Config, logger zerolog.Logger, metrics *timeline.Metrics) *ClientWrapper {
	return &ClientWrapper{
		config:  config,
		logger:  logger,
		metrics: metrics,
		running: false,
	}
}

// InitClient opens the history store and connects to the configured
// homeserver with the saved credentials, if any.
func (c *ClientWrapper) InitClient() error {
	if c.Initialized() {
		c.Stop()
		c.client = nil
	}
	if len(c.config.Homeserver) == 0 {
		return ErrNoHomeserver
	}

	err := c.OpenStore()
	if err != nil {
		return err
	}

	c.client, err = mautrix.NewClient(c.config.Homeserver, c.config.UserID, c.config.AccessToken)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to create mautrix client")
		return fmt.Errorf("failed to create mautrix client: %w", err)
	}
	c.client.DeviceID = c.config.DeviceID

	c.syncer = NewSyncer(c.rooms, c.history, c.logger, c.config.TimelineLimit)
	c.client.Syncer = c.syncer

	c.stop = make(chan bool, 1)
	return nil
}

// OpenStore opens the history store and the room cache on top of it. It
// is enough to read stored timelines without a homeserver.
func (c *ClientWrapper) OpenStore() error {
	if c.history == nil {
		store, err := history.Open(c.config.HistoryBackend, c.config.HistoryPath)
		if err != nil {
			c.logger.Err(err).Msg("failed to initialize history")
			return fmt.Errorf("failed to initialize history: %w", err)
		}
		c.history = store
	}
	if c.rooms == nil {
		c.rooms = rooms.NewRoomCache(c.roomOptions(), c.history)
	}
	return nil
}

func (c *ClientWrapper) roomOptions() rooms.Options {
	return rooms.Options{
		Log:              c.logger,
		Metrics:          c.metrics,
		GroupWindow:      c.config.GroupWindow,
		StrictInvariants: c.config.StrictInvariants,
	}
}

// Client returns the underlying matrix Client.
func (c *ClientWrapper) Client() *mautrix.Client {
	return c.client
}

// Syncer returns the syncer installed on the client.
func (c *ClientWrapper) Syncer() *Syncer {
	return c.syncer
}

func (c *ClientWrapper) IsStopped() chan bool {
	return c.stop
}

// Initialized returns whether or not the matrix client is initialized, i.e., has been instantiated
func (c *ClientWrapper) Initialized() bool {
	return c.client != nil
}

// Login sends a password login request with the given username and password.
func (c *ClientWrapper) Login(user, password string) error {
	resp, err := c.client.GetLoginFlows()
	if err != nil {
		c.logger.Error().Err(err).Msg("could not check the login flows supported by the homeserver")
		return err
	}

	for _, flow := range resp.Flows {
		if flow.Type == "m.login.password" {
			return c.PasswordLogin(user, password)
		}
	}
	c.logger.Error().Msg("password login is not supported by the homeserver")
	return ErrNoPassword
}

// Manual login
func (c *ClientWrapper) PasswordLogin(user, password string) error {
	resp, err := c.client.Login(&mautrix.ReqLogin{
		Type: "m.login.password",
		Identifier: mautrix.UserIdentifier{
			Type: "m.id.user",
			User: user,
		},
		Password:                 password,
		InitialDeviceDisplayName: "roomline",

		StoreCredentials:   true,
		StoreHomeserverURL: true,
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("could not login")
		return err
	}

	c.client.SetCredentials(resp.UserID, resp.AccessToken)
	return c.concludeLogin(resp)
}

// Concludes the login process, by assigning some last values to config fields
func (c *ClientWrapper) concludeLogin(resp *mautrix.RespLogin) error {
	c.config.UserID = resp.UserID
	c.config.DeviceID = resp.DeviceID
	c.config.AccessToken = resp.AccessToken
	if resp.WellKnown != nil && len(resp.WellKnown.Homeserver.BaseURL) > 0 {
		c.config.Homeserver = resp.WellKnown.Homeserver.BaseURL
	}
	c.logger.Info().Str("user_id", resp.UserID.String()).Msg("Logged in")
	return c.config.Save()
}

func (c *ClientWrapper) Logout() error {
	c.logger.Info().Msg("Logging out...")
	if c.client == nil {
		return ErrNotLoggedIn
	}
	c.Stop()
	if _, err := c.client.Logout(); err != nil {
		c.logger.Warn().Err(err).Msg("Logout request failed, dropping the session anyway")
	}
	c.client.ClearCredentials()
	return c.config.DeleteSession()
}

// Start runs the sync loop until Stop is called or the session is
// rejected by the homeserver.
func (c *ClientWrapper) Start() error {
	if c.client == nil || len(c.client.AccessToken) == 0 {
		return ErrNotLoggedIn
	}

	c.logger.Info().Msg("Starting sync...")
	c.running = true
	c.client.StreamSyncMinAge = 30 * time.Minute
	for {
		select {
		case <-c.stop:
			c.logger.Info().Msg("Stopping sync...")
			c.running = false
			return nil
		default:
			if err := c.client.Sync(); err != nil {
				if errors.Is(err, mautrix.MUnknownToken) {
					c.logger.Error().Msg("Access token was not recognized -> logging out")
					c.running = false
					_ = c.Logout()
					return err
				}
				c.logger.Error().Err(err).Msg("Sync() call errored")
			}
		}
	}
}

// Stop stops the Matrix syncer.
func (c *ClientWrapper) Stop() {
	if c.running {
		c.logger.Info().Msg("Stopping Matrix client...")
		select {
		case c.stop <- true:
		default:
		}
		c.client.StopSync()
	}
}

// Close stops syncing and closes the history store.
func (c *ClientWrapper) Close() error {
	c.Stop()
	if c.history == nil {
		return nil
	}
	c.logger.Info().Msg("Closing history store...")
	err := c.history.Close()
	c.history = nil
	return err
}

// Paginate fetches up to limit older events of the room and feeds them to
// its timeline. It returns the number of events received, zero once the
// start of the room is reached.
func (c *ClientWrapper) Paginate(roomID id.RoomID, limit int) (int, error) {
	if c.client == nil {
		return 0, ErrNotLoggedIn
	}
	if limit <= 0 {
		limit = c.config.TimelineLimit
	}
	room := c.GetOrCreateRoom(roomID)
	from := room.GetPrevBatch()

	resp, err := c.client.Messages(roomID, from, "", 'b', nil, limit)
	if err != nil {
		c.logger.Err(err).Str("room_id", roomID.String()).Msg("Could not load events from homeserver")
		return 0, err
	}
	c.logger.Debug().
		Str("room_id", roomID.String()).
		Int("count", len(resp.Chunk)).
		Str("from", from).
		Str("to", resp.End).
		Msg("Loaded events from server")

	events := prepareEvents(roomID, chronological(resp.Chunk))
	if len(events) > 0 {
		if err = c.history.Append(roomID, events); err != nil {
			return 0, fmt.Errorf("store paginated events: %w", err)
		}
		room.Ingest(rooms.Batch{Events: events, Direction: rooms.Backwards})
	}

	if resp.End != "" {
		room.SetPrevBatch(resp.End)
		if err = c.history.SetPaginationToken(roomID, resp.End); err != nil {
			c.logger.Warn().Err(err).Str("room_id", roomID.String()).Msg("Failed to store pagination token")
		}
	}
	return len(events), nil
}

// chronological reverses a backwards pagination chunk in place.
func chronological(events []*event.Event) []*event.Event {
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events
}

// JoinedRooms lists the rooms the user is currently joined into.
func (c *ClientWrapper) JoinedRooms() ([]id.RoomID, error) {
	if c.client == nil {
		return nil, ErrNotLoggedIn
	}
	resp, err := c.client.JoinedRooms()
	if err != nil {
		c.logger.Error().Err(err).Msg("could not list the rooms the user is joined to")
		return nil, err
	}
	return resp.JoinedRooms, nil
}

// GetOrCreateRoom gets the room instance stored in the session, loading
// its timeline from history if needed.
func (c *ClientWrapper) GetOrCreateRoom(roomID id.RoomID) *rooms.Room {
	return c.rooms.GetOrCreate(roomID)
}

// GetRoom gets the room instance stored in the session.
func (c *ClientWrapper) GetRoom(roomID id.RoomID) *rooms.Room {
	return c.rooms.Get(roomID)
}

// Rooms returns the room cache of the session.
func (c *ClientWrapper) Rooms() *rooms.RoomCache {
	return c.rooms
}

// OnFirstSync sets a function to run once the first sync response has been
// processed. InitClient must have been called.
func (c *ClientWrapper) OnFirstSync(fn func()) {
	c.syncer.FirstDoneCallback = fn
}
