package datum

// Get returns the active value of d read as T. A mismatch that is not one of
// the permitted widenings fails with apperr.ErrTypeMismatch.
func Get[T Value](d *Datum) (T, error) {
	var zero T
	v, err := convert(d.active().value, zero.Type())
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// AsInt is Get[Int] as a plain int.
func (d *Datum) AsInt() (int, error) {
	v, err := Get[Int](d)
	return int(v), err
}

// AsFloat is Get[Float] as a plain float64; an Int value widens.
func (d *Datum) AsFloat() (float64, error) {
	v, err := Get[Float](d)
	return float64(v), err
}

// AsString is Get[String] as a plain string.
func (d *Datum) AsString() (string, error) {
	v, err := Get[String](d)
	return string(v), err
}

// AsIntArray is Get[IntArray] as a plain slice.
func (d *Datum) AsIntArray() ([]int, error) {
	v, err := Get[IntArray](d)
	return []int(v), err
}

// AsFloatArray is Get[FloatArray] as a plain slice.
func (d *Datum) AsFloatArray() ([]float64, error) {
	v, err := Get[FloatArray](d)
	return []float64(v), err
}

// AsStringArray is Get[StringArray] as a plain slice.
func (d *Datum) AsStringArray() ([]string, error) {
	v, err := Get[StringArray](d)
	return []string(v), err
}

// AsContainer returns the child names of a container.
func (d *Datum) AsContainer() ([]string, error) {
	v, err := Get[Container](d)
	return []string(v), err
}
