/*package cuckoo implements O(N) "cuckoo" placement for datasets where you
already know the index or bin that every element must land in. The load
balancer uses Bin to group a rank assignment's gids by rank without ever
comparing two ranks against each other, a permutation known up front
rather than discovered by comparison.
*/
package cuckoo

// Interface is the contract an object being cuckoo-placed must satisfy.
// Length returns the number of elements. Index returns the destination slot
// for element i. Put moves the element currently at i into slot j.
type Interface interface {
	Length() int
	Index(i int) int
	Put(i, j int)
}

// Sort places every element of data into the slot given by data.Index, using
// at most Length swaps. This is valid whenever Index is a permutation of
// [0, Length()), which is the case for both Morton-order enumeration and
// rank-contiguous placement: every element has a unique, already-known
// destination.
func Sort(data Interface) {
	n := data.Length()
	for i := 0; i < n; i++ {
		for {
			j := data.Index(i)
			if j == i { break }
			data.Put(i, j)
		}
	}
}

// Bin groups the integers 0..n-1 into contiguous runs ordered by bucket,
// without ever comparing two indices against each other: it counts how many
// indices fall in each of the nbins buckets bucket(i) produces, turns
// those counts into a prefix-sum offset table, and then scatters each index
// into its run in a single pass. It returns the permutation order such that
// bucket(order[0]), bucket(order[1]), ... is grouped by bucket, and the starting
// offset of each bucket's run within order (length nbins+1, with a trailing
// total).
func Bin(n, nbins int, bucket func(i int) int) (order, offsets []int) {
	counts := make([]int, nbins+1)
	bucketOf := make([]int, n)
	for i := 0; i < n; i++ {
		b := bucket(i)
		bucketOf[i] = b
		counts[b+1]++
	}

	offsets = make([]int, nbins+1)
	for b := 0; b < nbins; b++ {
		offsets[b+1] = offsets[b] + counts[b+1]
	}

	cursor := make([]int, nbins)
	copy(cursor, offsets[:nbins])

	order = make([]int, n)
	for i := 0; i < n; i++ {
		b := bucketOf[i]
		order[cursor[b]] = i
		cursor[b]++
	}

	return order, offsets
}
