package main

type box struct {
	data  string
	items []string
}

type counter struct{ n int }

func (c *counter) incr() {
	c.n++
}

type runner interface {
	run() string
}

var g string

func global() string {
	return g
}

func use(b *box, xs []string) string {
	b.data = xs[0]
	c := counter{}
	c.incr()
	return b.data
}

func callRunner(r runner) string {
	return r.run()
}

func main() {
	b := &box{}
	use(b, []string{"a"})
	_ = global()
	_ = callRunner(nil)
}
