package idxfile

// KeyLess compares the keys at two key-record offsets, returning true if
// the key at a sorts strictly before the key at b. Diagnostics need this to
// verify ordering without depending on the key file package directly (it
// would create an import cycle), so callers supply it.
type KeyLess func(a, b int64) (bool, error)

// Stats summarizes the structural health of the tree rooted at top.
type Stats struct {
	Depth       int
	IsBalanced  bool
	IsDense     bool
	IsMSTValid  bool
	NodeCount   int
	KeyCount    int
	FreeByClass map[uint32]int64
}

// Height returns the height of the subtree rooted at offset (0 for a leaf).
func (f *File) Height(offset int64) (int, error) {
	n, err := f.ReadNode(offset)
	if err != nil {
		return 0, err
	}
	if n.IsLeaf() {
		return 0, nil
	}
	max := 0
	for _, d := range n.Downs {
		h, err := f.Height(d)
		if err != nil {
			return 0, err
		}
		if h > max {
			max = h
		}
	}
	return max + 1, nil
}

// IsBalanced reports whether every internal node's children all have equal
// height, checked recursively from offset.
func (f *File) IsBalanced(offset int64) (bool, error) {
	n, err := f.ReadNode(offset)
	if err != nil {
		return false, err
	}
	if n.IsLeaf() {
		return true, nil
	}
	first := -1
	for _, d := range n.Downs {
		h, err := f.Height(d)
		if err != nil {
			return false, err
		}
		if first == -1 {
			first = h
		} else if h != first {
			return false, nil
		}
		ok, err := f.IsBalanced(d)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// IsDense reports whether every internal non-root node holds at least
// NodeSlotsMaxHalf children, checked recursively from offset (the
// recursion skips the density check for the node passed in, since the
// root is exempt).
func (f *File) IsDense(offset int64) (bool, error) {
	n, err := f.ReadNode(offset)
	if err != nil {
		return false, err
	}
	if n.IsLeaf() {
		return true, nil
	}
	for _, d := range n.Downs {
		child, err := f.ReadNode(d)
		if err != nil {
			return false, err
		}
		if !child.IsLeaf() && len(child.Downs) < NodeSlotsMaxHalf {
			return false, nil
		}
		ok, err := f.IsDense(d)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// IsMSTValid walks the tree in order and reports whether keys are strictly
// increasing across the whole traversal.
func (f *File) IsMSTValid(offset int64, less KeyLess) (bool, error) {
	var prev int64 = -1
	var valid = true
	var walk func(off int64) error
	walk = func(off int64) error {
		n, err := f.ReadNode(off)
		if err != nil {
			return err
		}
		for i, k := range n.Keys {
			if !n.IsLeaf() {
				if err := walk(n.Downs[i]); err != nil {
					return err
				}
			}
			if prev != -1 {
				ok, err := less(prev, k)
				if err != nil {
					return err
				}
				if !ok {
					valid = false
				}
			}
			prev = k
		}
		if !n.IsLeaf() {
			if err := walk(n.Downs[len(n.Downs)-1]); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(offset); err != nil {
		return false, err
	}
	return valid, nil
}

// InOrder yields every key-record offset in ascending key order.
func (f *File) InOrder(offset int64, visit func(keyOffset int64) error) error {
	n, err := f.ReadNode(offset)
	if err != nil {
		return err
	}
	for i, k := range n.Keys {
		if !n.IsLeaf() {
			if err := f.InOrder(n.Downs[i], visit); err != nil {
				return err
			}
		}
		if err := visit(k); err != nil {
			return err
		}
	}
	if !n.IsLeaf() {
		if err := f.InOrder(n.Downs[len(n.Downs)-1], visit); err != nil {
			return err
		}
	}
	return nil
}

// Walk applies fn to every node in the subtree rooted at offset, used by
// the stats collector and by tests.
func (f *File) Walk(offset int64, fn func(*Node) error) error {
	n, err := f.ReadNode(offset)
	if err != nil {
		return err
	}
	if err := fn(n); err != nil {
		return err
	}
	if !n.IsLeaf() {
		for _, d := range n.Downs {
			if err := f.Walk(d, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// CollectStats computes the diagnostics surface the introspection CLI and
// test suite rely on.
func (f *File) CollectStats(less KeyLess) (Stats, error) {
	top, err := f.ReadTopNodeOffset()
	if err != nil {
		return Stats{}, err
	}
	depth, err := f.Height(top)
	if err != nil {
		return Stats{}, err
	}
	balanced, err := f.IsBalanced(top)
	if err != nil {
		return Stats{}, err
	}
	dense, err := f.IsDense(top)
	if err != nil {
		return Stats{}, err
	}
	mst, err := f.IsMSTValid(top, less)
	if err != nil {
		return Stats{}, err
	}
	nodeCount, keyCount := 0, 0
	if err := f.Walk(top, func(n *Node) error {
		nodeCount++
		keyCount += len(n.Keys)
		return nil
	}); err != nil {
		return Stats{}, err
	}
	freeByClass := make(map[uint32]int64, len(sizeClasses))
	for _, sz := range sizeClasses {
		c, err := f.CountFreePieceList(sz)
		if err != nil {
			return Stats{}, err
		}
		freeByClass[sz] = c
	}
	return Stats{
		Depth:       depth,
		IsBalanced:  balanced,
		IsDense:     dense,
		IsMSTValid:  mst,
		NodeCount:   nodeCount,
		KeyCount:    keyCount,
		FreeByClass: freeByClass,
	}, nil
}
