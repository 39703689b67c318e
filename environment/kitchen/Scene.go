package kitchen

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Discrete actions
const (
	MinAction int = 0
	MaxAction int = 9
)

// Action enumerates the discrete actions of a kitchen scene. The
// first eight actions move the agent's body or head, the last two
// interact with the receptacle the agent faces.
type Action int

const (
	MoveAhead Action = iota
	MoveBack
	MoveRight
	MoveLeft
	LookUp
	LookDown
	RotateRight
	RotateLeft
	PickupObject
	PutObject
)

func (a Action) String() string {
	switch a {
	case MoveAhead:
		return "MoveAhead"
	case MoveBack:
		return "MoveBack"
	case MoveRight:
		return "MoveRight"
	case MoveLeft:
		return "MoveLeft"
	case LookUp:
		return "LookUp"
	case LookDown:
		return "LookDown"
	case RotateRight:
		return "RotateRight"
	case RotateLeft:
		return "RotateLeft"
	case PickupObject:
		return "PickupObject"
	case PutObject:
		return "PutObject"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// ObjectType enumerates the household objects that can sit in
// receptacles or be carried by the agent
type ObjectType int

const (
	Mug ObjectType = iota
	Cup
	Apple
	Bowl
	Potato
	Knife
)

const numObjectTypes = int(Knife) + 1

func (o ObjectType) String() string {
	switch o {
	case Mug:
		return "Mug"
	case Cup:
		return "Cup"
	case Apple:
		return "Apple"
	case Bowl:
		return "Bowl"
	case Potato:
		return "Potato"
	case Knife:
		return "Knife"
	default:
		return fmt.Sprintf("ObjectType(%d)", int(o))
	}
}

// ReceptacleType enumerates the fixtures objects can be placed in or
// on. Receptacle cells block movement.
type ReceptacleType int

const (
	Counter ReceptacleType = iota
	Sink
	Fridge
	Cupboard
	Table
	GarbageCan
)

func (r ReceptacleType) String() string {
	switch r {
	case Counter:
		return "Counter"
	case Sink:
		return "Sink"
	case Fridge:
		return "Fridge"
	case Cupboard:
		return "Cupboard"
	case Table:
		return "Table"
	case GarbageCan:
		return "GarbageCan"
	default:
		return fmt.Sprintf("ReceptacleType(%d)", int(r))
	}
}

// Facing directions, clockwise from north. North decreases the row
// index.
const (
	North int = iota
	East
	South
	West
)

// Cell deltas per facing direction
var (
	rowDelta = [4]int{-1, 0, 1, 0}
	colDelta = [4]int{0, 1, 0, -1}
)

// Receptacle is a fixture at a fixed cell of the scene
type Receptacle struct {
	Type ReceptacleType
	Row  int
	Col  int
}

// Object is a household object located either in a receptacle or in
// the agent's hand
type Object struct {
	Type ObjectType

	// Index into the scene's receptacles, or -1 while carried
	Receptacle int
}

// Scene holds the full state of a kitchen: the grid, the fixed
// receptacles, the movable objects, and the agent's pose and
// inventory. A Scene exposes its state as a flat feature vector whose
// layout is fixed at construction.
//
// The feature vector is the concatenation of
//
//	[rows*cols]               one-hot agent cell
//	[4]                       one-hot facing direction
//	[1]                       head tilt, scaled into [0, 1]
//	[object types]            one-hot type of the carried object
//	[objects x receptacles+1] per object, one-hot location with the
//	                          final slot meaning carried
//
// so every feature lies in [0, 1].
type Scene struct {
	rows int
	cols int

	receptacles []Receptacle
	objects     []Object
	initial     []int

	agentRow int
	agentCol int
	facing   int
	tilt     int
	held     int
}

// NewScene returns a Scene with the default kitchen layout: six
// receptacles along the walls and one object of each type placed in
// its customary receptacle. The grid must be at least 4x4 so the
// layout has room for the receptacles and free floor.
func NewScene(rows, cols int) (*Scene, error) {
	if rows < 4 || cols < 4 {
		return nil, fmt.Errorf("newscene: scene must be at least 4x4, "+
			"got %vx%v", rows, cols)
	}

	receptacles := []Receptacle{
		{Counter, 0, 1},
		{Sink, 0, cols - 2},
		{Fridge, 1, 0},
		{Cupboard, 1, cols - 1},
		{Table, rows - 1, 1},
		{GarbageCan, rows - 1, cols - 2},
	}

	objects := []Object{
		{Mug, 0},    // Counter
		{Cup, 1},    // Sink
		{Apple, 2},  // Fridge
		{Bowl, 3},   // Cupboard
		{Potato, 2}, // Fridge
		{Knife, 4},  // Table
	}

	initial := make([]int, len(objects))
	for i, o := range objects {
		initial[i] = o.Receptacle
	}

	s := &Scene{
		rows:        rows,
		cols:        cols,
		receptacles: receptacles,
		objects:     objects,
		initial:     initial,
		held:        -1,
	}
	return s, nil
}

// Rows returns the number of grid rows in the scene
func (s *Scene) Rows() int {
	return s.rows
}

// Cols returns the number of grid columns in the scene
func (s *Scene) Cols() int {
	return s.cols
}

// Features returns the length of the scene's feature vector
func (s *Scene) Features() int {
	return s.rows*s.cols + 4 + 1 + numObjectTypes +
		len(s.objects)*(len(s.receptacles)+1)
}

// Objects returns the scene's objects. The returned slice reflects
// live scene state and must not be modified.
func (s *Scene) Objects() []Object {
	return s.objects
}

// Receptacles returns the scene's receptacles. The returned slice is
// the scene's backing storage and must not be modified.
func (s *Scene) Receptacles() []Receptacle {
	return s.receptacles
}

// AgentPose returns the agent's cell, facing direction, and head tilt
func (s *Scene) AgentPose() (row, col, facing, tilt int) {
	return s.agentRow, s.agentCol, s.facing, s.tilt
}

// Held returns the type of the carried object and whether one is
// carried at all
func (s *Scene) Held() (ObjectType, bool) {
	if s.held < 0 {
		return 0, false
	}
	return s.objects[s.held].Type, true
}

// Free returns whether the agent may occupy cell (row, col)
func (s *Scene) Free(row, col int) bool {
	if row < 0 || row >= s.rows || col < 0 || col >= s.cols {
		return false
	}
	return s.receptacleAt(row, col) < 0
}

// receptacleAt returns the index of the receptacle at (row, col), or
// -1 when the cell is floor
func (s *Scene) receptacleAt(row, col int) int {
	for i, r := range s.receptacles {
		if r.Row == row && r.Col == col {
			return i
		}
	}
	return -1
}

// facedReceptacle returns the index of the receptacle in the cell the
// agent faces, or -1
func (s *Scene) facedReceptacle() int {
	return s.receptacleAt(s.agentRow+rowDelta[s.facing],
		s.agentCol+colDelta[s.facing])
}

// reset returns all objects to their initial receptacles, empties the
// agent's hand, and levels its head. The agent's pose is set by the
// caller afterwards.
func (s *Scene) reset() {
	for i := range s.objects {
		s.objects[i].Receptacle = s.initial[i]
	}
	s.held = -1
	s.tilt = 0
}

// place puts the agent at (row, col) with the given facing. The cell
// must be free.
func (s *Scene) place(row, col, facing int) {
	if !s.Free(row, col) {
		panic(fmt.Sprintf("place: cell (%v, %v) is not free", row, col))
	}
	s.agentRow = row
	s.agentCol = col
	s.facing = facing % 4
}

// apply performs one action on the scene. Movement into walls or
// receptacle cells, pickups with a full hand or nothing faced, and
// puts with an empty hand all leave the scene unchanged.
func (s *Scene) apply(a Action) {
	switch a {
	case MoveAhead:
		s.move(s.facing)
	case MoveBack:
		s.move((s.facing + 2) % 4)
	case MoveRight:
		s.move((s.facing + 1) % 4)
	case MoveLeft:
		s.move((s.facing + 3) % 4)
	case LookUp:
		if s.tilt < 1 {
			s.tilt++
		}
	case LookDown:
		if s.tilt > -1 {
			s.tilt--
		}
	case RotateRight:
		s.facing = (s.facing + 1) % 4
	case RotateLeft:
		s.facing = (s.facing + 3) % 4
	case PickupObject:
		s.pickup()
	case PutObject:
		s.put()
	default:
		panic(fmt.Sprintf("apply: illegal action %v", int(a)))
	}
}

// move steps the agent one cell in direction unless blocked
func (s *Scene) move(direction int) {
	row := s.agentRow + rowDelta[direction]
	col := s.agentCol + colDelta[direction]
	if s.Free(row, col) {
		s.agentRow = row
		s.agentCol = col
	}
}

// pickup takes the lowest-indexed object out of the faced receptacle.
// Taking the lowest index keeps the scene deterministic when a
// receptacle holds several objects.
func (s *Scene) pickup() {
	if s.held >= 0 {
		return
	}
	faced := s.facedReceptacle()
	if faced < 0 {
		return
	}
	for i := range s.objects {
		if s.objects[i].Receptacle == faced {
			s.objects[i].Receptacle = -1
			s.held = i
			return
		}
	}
}

// put places the carried object into the faced receptacle
func (s *Scene) put() {
	if s.held < 0 {
		return
	}
	faced := s.facedReceptacle()
	if faced < 0 {
		return
	}
	s.objects[s.held].Receptacle = faced
	s.held = -1
}

// observation renders the scene state as its feature vector
func (s *Scene) observation() *mat.VecDense {
	obs := make([]float64, s.Features())

	obs[s.agentRow*s.cols+s.agentCol] = 1.0

	faceOff := s.rows * s.cols
	obs[faceOff+s.facing] = 1.0

	tiltOff := faceOff + 4
	obs[tiltOff] = float64(s.tilt+1) / 2.0

	invOff := tiltOff + 1
	if s.held >= 0 {
		obs[invOff+int(s.objects[s.held].Type)] = 1.0
	}

	objOff := invOff + numObjectTypes
	blockLen := len(s.receptacles) + 1
	for i, o := range s.objects {
		slot := o.Receptacle
		if slot < 0 {
			slot = len(s.receptacles)
		}
		obs[objOff+i*blockLen+slot] = 1.0
	}

	return mat.NewVecDense(len(obs), obs)
}

// HeldType decodes the carried object's type from a feature vector
// produced by this scene. The second return value is false when the
// vector encodes an empty hand.
func (s *Scene) HeldType(obs mat.Vector) (ObjectType, bool) {
	invOff := s.rows*s.cols + 4 + 1
	for t := 0; t < numObjectTypes; t++ {
		if obs.AtVec(invOff+t) != 0.0 {
			return ObjectType(t), true
		}
	}
	return 0, false
}
