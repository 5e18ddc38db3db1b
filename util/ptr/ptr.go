package ptr

func Int64(value int64) *int64 {
	return &value
}
