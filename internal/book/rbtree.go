package book

import "main/internal/schema"

type color uint8

const (
	red   color = 0
	black color = 1
)

type node struct {
	price  schema.Price
	qty    schema.Quantity
	color  color
	left   *node
	right  *node
	parent *node
}

// priceTree is an ordered price → quantity map backed by a red-black tree.
// Ordered storage keeps best-level and range-sum queries sub-linear; a hash
// map would force an O(n) scan for both.
type priceTree struct {
	root *node
	nil  *node
	size int
}

func newPriceTree() *priceTree {
	nilNode := &node{color: black}
	return &priceTree{root: nilNode, nil: nilNode}
}

func (t *priceTree) Size() int { return t.size }

// Get returns the quantity at a price, 0 when the level is absent.
func (t *priceTree) Get(price schema.Price) schema.Quantity {
	n := t.searchNode(price)
	if n == t.nil {
		return 0
	}
	return n.qty
}

// Set inserts or replaces a level. qty must be > 0; absent levels are removed
// with Delete, never stored as zero.
func (t *priceTree) Set(price schema.Price, qty schema.Quantity) {
	y := t.nil
	x := t.root
	for x != t.nil {
		y = x
		if price < x.price {
			x = x.left
		} else if price > x.price {
			x = x.right
		} else {
			x.qty = qty
			return
		}
	}
	z := &node{price: price, qty: qty, color: red, left: t.nil, right: t.nil, parent: y}
	if y == t.nil {
		t.root = z
	} else if z.price < y.price {
		y.left = z
	} else {
		y.right = z
	}
	t.insertFixup(z)
	t.size++
}

// Delete removes a level. Reports whether it existed.
func (t *priceTree) Delete(price schema.Price) bool {
	z := t.searchNode(price)
	if z == t.nil {
		return false
	}
	t.deleteNode(z)
	t.size--
	return true
}

// Min returns the lowest level.
func (t *priceTree) Min() (schema.Price, schema.Quantity, bool) {
	n := t.minNode(t.root)
	if n == t.nil {
		return 0, 0, false
	}
	return n.price, n.qty, true
}

// Max returns the highest level.
func (t *priceTree) Max() (schema.Price, schema.Quantity, bool) {
	n := t.maxNode(t.root)
	if n == t.nil {
		return 0, 0, false
	}
	return n.price, n.qty, true
}

// AscendRange visits levels with lo <= price <= hi in ascending order until fn
// returns false. Runs in O(log n + k) for k visited levels.
func (t *priceTree) AscendRange(lo, hi schema.Price, fn func(price schema.Price, qty schema.Quantity) bool) {
	t.ascendRange(t.root, lo, hi, fn)
}

func (t *priceTree) ascendRange(n *node, lo, hi schema.Price, fn func(schema.Price, schema.Quantity) bool) bool {
	if n == t.nil {
		return true
	}
	if n.price > lo {
		if !t.ascendRange(n.left, lo, hi, fn) {
			return false
		}
	}
	if n.price >= lo && n.price <= hi {
		if !fn(n.price, n.qty) {
			return false
		}
	}
	if n.price < hi {
		return t.ascendRange(n.right, lo, hi, fn)
	}
	return true
}

// ForEachAscending visits all levels from lowest to highest until fn returns
// false.
func (t *priceTree) ForEachAscending(fn func(price schema.Price, qty schema.Quantity) bool) {
	for n := t.minNode(t.root); n != t.nil; n = t.next(n) {
		if !fn(n.price, n.qty) {
			return
		}
	}
}

// ForEachDescending visits all levels from highest to lowest until fn returns
// false.
func (t *priceTree) ForEachDescending(fn func(price schema.Price, qty schema.Quantity) bool) {
	for n := t.maxNode(t.root); n != t.nil; n = t.prev(n) {
		if !fn(n.price, n.qty) {
			return
		}
	}
}

// Clear resets the tree (used when rebuilding from a snapshot).
func (t *priceTree) Clear() {
	t.root = t.nil
	t.size = 0
}

/******************** Internal helpers ********************/

func (t *priceTree) searchNode(price schema.Price) *node {
	n := t.root
	for n != t.nil {
		if price < n.price {
			n = n.left
		} else if price > n.price {
			n = n.right
		} else {
			return n
		}
	}
	return t.nil
}

func (t *priceTree) minNode(n *node) *node {
	if n == t.nil {
		return t.nil
	}
	for n.left != t.nil {
		n = n.left
	}
	return n
}

func (t *priceTree) maxNode(n *node) *node {
	if n == t.nil {
		return t.nil
	}
	for n.right != t.nil {
		n = n.right
	}
	return n
}

func (t *priceTree) next(n *node) *node {
	if n == nil || n == t.nil {
		return t.nil
	}
	if n.right != t.nil {
		return t.minNode(n.right)
	}
	p := n.parent
	for p != t.nil && n == p.right {
		n = p
		p = p.parent
	}
	return p
}

func (t *priceTree) prev(n *node) *node {
	if n == nil || n == t.nil {
		return t.nil
	}
	if n.left != t.nil {
		return t.maxNode(n.left)
	}
	p := n.parent
	for p != t.nil && n == p.left {
		n = p
		p = p.parent
	}
	return p
}

func (t *priceTree) leftRotate(x *node) {
	y := x.right
	x.right = y.left
	if y.left != t.nil {
		y.left.parent = x
	}
	y.parent = x.parent
	if x.parent == t.nil {
		t.root = y
	} else if x == x.parent.left {
		x.parent.left = y
	} else {
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *priceTree) rightRotate(y *node) {
	x := y.left
	y.left = x.right
	if x.right != t.nil {
		x.right.parent = y
	}
	x.parent = y.parent
	if y.parent == t.nil {
		t.root = x
	} else if y == y.parent.right {
		y.parent.right = x
	} else {
		y.parent.left = x
	}
	x.right = y
	y.parent = x
}

func (t *priceTree) insertFixup(z *node) {
	for z.parent.color == red {
		if z.parent == z.parent.parent.left {
			y := z.parent.parent.right
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.right {
					z = z.parent
					t.leftRotate(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.rightRotate(z.parent.parent)
			}
		} else {
			y := z.parent.parent.left
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
			} else {
				if z == z.parent.left {
					z = z.parent
					t.rightRotate(z)
				}
				z.parent.color = black
				z.parent.parent.color = red
				t.leftRotate(z.parent.parent)
			}
		}
	}
	t.root.color = black
}

func (t *priceTree) transplant(u, v *node) {
	if u.parent == t.nil {
		t.root = v
	} else if u == u.parent.left {
		u.parent.left = v
	} else {
		u.parent.right = v
	}
	v.parent = u.parent
}

func (t *priceTree) deleteNode(z *node) {
	y := z
	yOrigColor := y.color
	var x *node

	if z.left == t.nil {
		x = z.right
		t.transplant(z, z.right)
	} else if z.right == t.nil {
		x = z.left
		t.transplant(z, z.left)
	} else {
		y = t.minNode(z.right)
		yOrigColor = y.color
		x = y.right
		if y.parent == z {
			x.parent = y
		} else {
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}

	if yOrigColor == black {
		t.deleteFixup(x)
	}
}

func (t *priceTree) deleteFixup(x *node) {
	for x != t.root && x.color == black {
		if x == x.parent.left {
			w := x.parent.right
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.leftRotate(x.parent)
				w = x.parent.right
			}
			if w.left.color == black && w.right.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.right.color == black {
					w.left.color = black
					w.color = red
					t.rightRotate(w)
					w = x.parent.right
				}
				w.color = x.parent.color
				x.parent.color = black
				w.right.color = black
				t.leftRotate(x.parent)
				x = t.root
			}
		} else {
			w := x.parent.left
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.rightRotate(x.parent)
				w = x.parent.left
			}
			if w.right.color == black && w.left.color == black {
				w.color = red
				x = x.parent
			} else {
				if w.left.color == black {
					w.right.color = black
					w.color = red
					t.leftRotate(x.parent)
					w = x.parent.left
				}
				w.color = x.parent.color
				x.parent.color = black
				w.left.color = black
				t.rightRotate(x.parent)
				x = t.root
			}
		}
	}
	x.color = black
}
