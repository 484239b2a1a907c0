package ifc

import (
	"roomline/matrix/rooms"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"
)

type MatrixContainer interface {
	Client() *mautrix.Client
	InitClient() error
	OpenStore() error
	Initialized() bool

	Start() error
	Stop()
	Close() error
	OnFirstSync(fn func())

	Login(user, password string) error
	Logout() error

	JoinedRooms() ([]id.RoomID, error)
	Paginate(roomID id.RoomID, limit int) (int, error)
	GetRoom(roomID id.RoomID) *rooms.Room
	GetOrCreateRoom(roomID id.RoomID) *rooms.Room
	Rooms() *rooms.RoomCache
}
