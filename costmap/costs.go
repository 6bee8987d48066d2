package costmap

// Reserved cell costs. Every other value below LethalObstacle is a traversal
// cost chosen by whoever writes it.
const (
	// FreeSpace is the minimal traversal cost.
	FreeSpace uint8 = 0
	// InscribedInflatedObstacle marks cells the robot footprint would touch an obstacle from.
	InscribedInflatedObstacle uint8 = 253
	// LethalObstacle marks impassable cells.
	LethalObstacle uint8 = 254
	// NoInformation marks cells nothing has been observed about.
	NoInformation uint8 = 255
)
