package page

// cell memoizes one computed value until it is cleared.
// An empty render is still a cached render.
type cell[T any] struct {
	value T
	ok    bool
}

func (c *cell[T]) getOrCompute(compute func() (T, error)) (T, error) {
	if c.ok {
		return c.value, nil
	}
	v, err := compute()
	if err != nil {
		var zero T
		return zero, err
	}
	c.value, c.ok = v, true
	return v, nil
}

func (c *cell[T]) invalidate() {
	var zero T
	c.value, c.ok = zero, false
}
