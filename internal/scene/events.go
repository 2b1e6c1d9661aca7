package scene

// ObjectDestroyed is emitted after a renderable has been removed from its
// layer and destroyed.
type ObjectDestroyed struct {
	Object Renderable
	Layer  int
}

// LayerSwitched is emitted when an object changes layer.
type LayerSwitched struct {
	Object   Renderable
	From, To int
}

// DeviceReset is emitted after the render device was lost and restored.
type DeviceReset struct {
	Frame uint64
}
