package annotation

import (
	"math"
	"math/rand"
	"sort"
)

// ValidationSplit partitions the videos of idx into a training set and a
// held-out set. For each category in sorted order, enough videos are moved to
// the held-out set that at least max(round(portion*n), 1) of the category's n
// videos are held out. The split is deterministic for a given seed.
func ValidationSplit(idx *Index, portion float64, seed int64) (train, heldOut []string) {
	rng := rand.New(rand.NewSource(seed))
	held := make(map[string]struct{})

	for _, category := range idx.Categories() {
		videos := idx.FilterByCategory(category)
		want := int(math.Round(portion * float64(len(videos))))
		if want < 1 {
			want = 1
		}
		have := 0
		candidates := make([]string, 0, len(videos))
		for video := range videos {
			if _, ok := held[video]; ok {
				have++
				continue
			}
			candidates = append(candidates, video)
		}
		if have >= want {
			continue
		}
		sort.Strings(candidates)
		rng.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
		need := want - have
		if need > len(candidates) {
			need = len(candidates)
		}
		for _, video := range candidates[:need] {
			held[video] = struct{}{}
		}
	}

	for _, video := range idx.Videos() {
		if _, ok := held[video]; ok {
			heldOut = append(heldOut, video)
		} else {
			train = append(train, video)
		}
	}
	sort.Strings(train)
	sort.Strings(heldOut)
	return train, heldOut
}
