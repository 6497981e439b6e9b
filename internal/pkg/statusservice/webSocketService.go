package statusservice

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
)

// WsConn is interface for websocket handling in status service
type WsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	WriteJSON(v interface{}) error
}

// WSConnKeeper keeps websocket subscribers by job ID
type WSConnKeeper struct {
	idConnectionMap map[string]map[WsConn]struct{}
	connectionIDMap map[WsConn]string
	mapLock         *sync.Mutex
	timeOut         time.Duration
	onSubscribe     func(ctx context.Context, c WsConn, id string)
}

// NewWSConnKeeper creates manager, onSubscribe is invoked for each new subscription, may be nil
func NewWSConnKeeper(onSubscribe func(ctx context.Context, c WsConn, id string)) *WSConnKeeper {
	res := &WSConnKeeper{}
	res.idConnectionMap = make(map[string]map[WsConn]struct{})
	res.connectionIDMap = make(map[WsConn]string)
	res.mapLock = &sync.Mutex{}
	res.timeOut = time.Minute * 30
	res.onSubscribe = onSubscribe
	return res
}

// HandleConnection reads job IDs from the connection until it is closed or idle for too long
func (kp *WSConnKeeper) HandleConnection(conn WsConn) error {
	defer kp.deleteConnection(conn)
	defer conn.Close()
	readCh := make(chan string)
	go func() {
		defer close(readCh)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				goapp.Log.Debug().Err(err).Msg("read routine ended")
				return
			}
			if msg := strings.TrimSpace(string(message)); msg != "" {
				readCh <- msg
			}
		}
	}()

	ta := time.After(kp.timeOut)
	for {
		select {
		case <-ta:
			goapp.Log.Debug().Msg("conn timeouted")
			return nil
		case id, ok := <-readCh:
			if !ok {
				return nil
			}
			goapp.Log.Debug().Str("ID", goapp.Sanitize(id)).Msg("subscribe")
			kp.saveConnection(conn, id)
			if kp.onSubscribe != nil {
				ctx, cf := context.WithTimeout(context.Background(), 10*time.Second)
				kp.onSubscribe(ctx, conn, id)
				cf()
			}
			ta = time.After(kp.timeOut)
		}
	}
}

func (kp *WSConnKeeper) deleteConnection(conn WsConn) {
	kp.mapLock.Lock()
	defer kp.mapLock.Unlock()
	kp.deleteConnectionNoSync(conn)
	goapp.Log.Debug().Int("active", len(kp.connectionIDMap)).Msg("connection deleted")
}

func (kp *WSConnKeeper) deleteConnectionNoSync(conn WsConn) {
	id, found := kp.connectionIDMap[conn]
	if !found {
		return
	}
	if conns, found := kp.idConnectionMap[id]; found {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(kp.idConnectionMap, id)
		}
	}
	delete(kp.connectionIDMap, conn)
}

// saveConnection moves the connection to the new ID, one connection tracks one job
func (kp *WSConnKeeper) saveConnection(conn WsConn, id string) {
	kp.mapLock.Lock()
	defer kp.mapLock.Unlock()
	kp.deleteConnectionNoSync(conn)
	kp.connectionIDMap[conn] = id
	conns, found := kp.idConnectionMap[id]
	if !found {
		conns = map[WsConn]struct{}{}
		kp.idConnectionMap[id] = conns
	}
	conns[conn] = struct{}{}
}

// GetConnections returns saved connections by provided id
func (kp *WSConnKeeper) GetConnections(id string) ([]WsConn, bool) {
	kp.mapLock.Lock()
	defer kp.mapLock.Unlock()
	cm, found := kp.idConnectionMap[id]
	if !found {
		return nil, false
	}
	res := make([]WsConn, 0, len(cm))
	for c := range cm {
		res = append(res, c)
	}
	return res, true
}
