package seed

import (
	"fmt"
	"io"

	lua "github.com/yuin/gopher-lua"
)

// LoadLua runs a seed script in a sandboxed VM and collects the world it
// declares:
//
//	Setting "The manor rearranges itself."
//	Player { name = "Corvin", description = "..." }
//	Room "Main Foyer" { description = "...", start = "Just inside the door." }
//	Item "Welcome Note" { room = "Main Foyer", description = "...", location = "..." }
//	Connect("Main Foyer", "Grand Hallway", "An arch.")
//
// Items and connections may name rooms declared later in the script. The VM
// is discarded once the script returns.
func LoadLua(r io.Reader, name string) (*Seed, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openSafeLibs(L)

	c := &collector{seed: &Seed{}, rooms: make(map[string]int)}
	c.register(L)

	fn, err := L.Load(r, name)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return nil, fmt.Errorf("failed to run %s: %w", name, err)
	}

	if err := c.resolve(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return c.seed, nil
}

// openSafeLibs opens the base, table, string and math libraries and removes
// every global that reaches the filesystem.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "collectgarbage"} {
		L.SetGlobal(name, lua.LNil)
	}
}

type pendingItem struct {
	room string
	item Item
}

type pendingConnection struct {
	from string
	conn Connection
}

// collector accumulates declarations while the script runs.
type collector struct {
	seed        *Seed
	rooms       map[string]int
	items       []pendingItem
	connections []pendingConnection
}

func (c *collector) register(L *lua.LState) {
	// Name "..."
	L.SetGlobal("Name", L.NewFunction(func(L *lua.LState) int {
		c.seed.Name = L.CheckString(1)
		return 0
	}))

	// Setting "..."
	L.SetGlobal("Setting", L.NewFunction(func(L *lua.LState) int {
		c.seed.Setting = L.CheckString(1)
		return 0
	}))

	// Player { name = "...", description = "..." }
	L.SetGlobal("Player", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		c.seed.Player = Player{
			Name:        field(tbl, "name"),
			Description: field(tbl, "description"),
		}
		return 0
	}))

	// Room "name" { description = "...", start = "..." }
	L.SetGlobal("Room", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			if _, ok := c.rooms[name]; ok {
				L.RaiseError("room %q is declared twice", name)
				return 0
			}
			c.rooms[name] = len(c.seed.Rooms)
			c.seed.Rooms = append(c.seed.Rooms, Room{Name: name, Description: field(tbl, "description")})
			if start := field(tbl, "start"); start != "" {
				c.seed.Start = Start{Room: name, Description: start}
			}
			return 0
		}))
		return 1
	}))

	// Item "name" { room = "...", description = "...", location = "..." }
	L.SetGlobal("Item", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			room := field(tbl, "room")
			if room == "" {
				L.RaiseError("item %q needs a room", name)
				return 0
			}
			c.items = append(c.items, pendingItem{room: room, item: Item{
				Name:        name,
				Description: field(tbl, "description"),
				Location:    field(tbl, "location"),
			}})
			return 0
		}))
		return 1
	}))

	// Connect("from", "to", "description")
	L.SetGlobal("Connect", L.NewFunction(func(L *lua.LState) int {
		c.connections = append(c.connections, pendingConnection{
			from: L.CheckString(1),
			conn: Connection{To: L.CheckString(2), Description: L.OptString(3, "")},
		})
		return 0
	}))
}

// resolve attaches items and connections to their declared rooms.
func (c *collector) resolve() error {
	for _, p := range c.items {
		i, ok := c.rooms[p.room]
		if !ok {
			return fmt.Errorf("item %q is placed in undeclared room %q", p.item.Name, p.room)
		}
		c.seed.Rooms[i].Items = append(c.seed.Rooms[i].Items, p.item)
	}
	for _, p := range c.connections {
		i, ok := c.rooms[p.from]
		if !ok {
			// The far end may be declared; attach the connection there.
			j, ok := c.rooms[p.conn.To]
			if !ok {
				return fmt.Errorf("connection %q <-> %q names no declared room", p.from, p.conn.To)
			}
			c.seed.Rooms[j].Connections = append(c.seed.Rooms[j].Connections, Connection{To: p.from, Description: p.conn.Description})
			continue
		}
		c.seed.Rooms[i].Connections = append(c.seed.Rooms[i].Connections, p.conn)
	}
	return nil
}

func field(tbl *lua.LTable, key string) string {
	if s, ok := tbl.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return ""
}
