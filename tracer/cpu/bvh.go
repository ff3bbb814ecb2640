package cpu

import (
	"math"
	"time"

	"github.com/achilleasa/raystream/log"
	"github.com/achilleasa/raystream/scene"
	"github.com/achilleasa/raystream/types"
)

type axis uint8

var bboxPadding = types.Vec3{1e-4, 1e-4, 1e-4}

const (
	xAxis axis = iota
	yAxis
	zAxis

	// The builder will not attempt to calculate split candidates
	// if the node bbox along an axis is less than this threshold.
	minSideLength float32 = 1e-3

	// Number of evenly spaced split candidates evaluated per axis.
	splitCandidates = 32

	// Nodes with this many triangles or less become leafs.
	minLeafItems = 4
)

// A bvh node. Leaf nodes reference the triangle index range
// [first, first+count); inner nodes reference their children.
type bvhNode struct {
	min, max types.Vec3

	left, right uint32

	first, count uint32
}

func (n *bvhNode) isLeaf() bool {
	return n.count > 0
}

// A bounding volume hierarchy over the triangles of a Geometry.
type bvh struct {
	nodes []bvhNode

	// Triangle indices in leaf order.
	triIndices []uint32
}

type boundedTriangle struct {
	index    uint32
	min, max types.Vec3
	center   types.Vec3
}

type splitScore struct {
	axis       axis
	splitPoint float32

	leftCount, rightCount int
	score                 float32
}

type bvhStats struct {
	nodes    int
	leafs    int
	maxDepth int
}

type bvhBuilder struct {
	nodes      []bvhNode
	triIndices []uint32

	// A channel for receiving per-axis score results.
	scoreChan chan *splitScore

	stats bvhStats
}

// Build a bvh for the geometry triangles. Returns nil if the geometry has no
// triangles.
func buildBvh(geom *scene.Geometry, logger log.Logger) *bvh {
	if geom == nil || len(geom.Triangles) == 0 {
		return nil
	}

	workList := make([]boundedTriangle, len(geom.Triangles))
	for idx, tri := range geom.Triangles {
		// Pad the bounds so that axis aligned triangles get a non-flat box
		min := types.MinVec3(types.MinVec3(tri.V1, tri.V2), tri.V3).Sub(bboxPadding)
		max := types.MaxVec3(types.MaxVec3(tri.V1, tri.V2), tri.V3).Add(bboxPadding)
		workList[idx] = boundedTriangle{
			index:  uint32(idx),
			min:    min,
			max:    max,
			center: tri.V1.Add(tri.V2).Add(tri.V3).Mul(1.0 / 3.0),
		}
	}

	b := &bvhBuilder{
		nodes:      make([]bvhNode, 0, 2*len(workList)/minLeafItems+1),
		triIndices: make([]uint32, 0, len(workList)),
		scoreChan:  make(chan *splitScore),
	}

	start := time.Now()
	b.partition(workList, 0)
	logger.Debugf(
		"bvh build time: %s, triangles: %d, maxDepth: %d, nodes: %d, leafs: %d",
		time.Since(start), len(workList), b.stats.maxDepth, b.stats.nodes, b.stats.leafs,
	)

	return &bvh{nodes: b.nodes, triIndices: b.triIndices}
}

// Partition worklist and return node index.
func (b *bvhBuilder) partition(workList []boundedTriangle, depth int) uint32 {
	if depth > b.stats.maxDepth {
		b.stats.maxDepth = depth
	}

	node := bvhNode{
		min: types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		max: types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
	for _, item := range workList {
		node.min = types.MinVec3(node.min, item.min)
		node.max = types.MaxVec3(node.max, item.max)
	}

	if len(workList) <= minLeafItems {
		return b.createLeaf(node, workList)
	}

	// Score each axis in parallel and pick the split with the best score
	bestScore := scorePartition(workList)
	var bestSplit *splitScore

	side := node.max.Sub(node.min)
	pendingScores := 0
	for ax := xAxis; ax <= zAxis; ax++ {
		if side[ax] < minSideLength {
			continue
		}

		pendingScores++
		go func(ax axis) {
			b.scoreChan <- bestAxisSplit(workList, ax, node.min[ax], side[ax])
		}(ax)
	}

	for ; pendingScores > 0; pendingScores-- {
		candidate := <-b.scoreChan
		if candidate != nil && candidate.score < bestScore {
			bestScore = candidate.score
			bestSplit = candidate
		}
	}

	if bestSplit == nil {
		return b.createLeaf(node, workList)
	}

	leftWorkList := make([]boundedTriangle, 0, bestSplit.leftCount)
	rightWorkList := make([]boundedTriangle, 0, bestSplit.rightCount)
	for _, item := range workList {
		if item.center[bestSplit.axis] < bestSplit.splitPoint {
			leftWorkList = append(leftWorkList, item)
		} else {
			rightWorkList = append(rightWorkList, item)
		}
	}

	nodeIndex := len(b.nodes)
	b.nodes = append(b.nodes, node)
	b.stats.nodes++

	left := b.partition(leftWorkList, depth+1)
	right := b.partition(rightWorkList, depth+1)
	b.nodes[nodeIndex].left, b.nodes[nodeIndex].right = left, right

	return uint32(nodeIndex)
}

func (b *bvhBuilder) createLeaf(node bvhNode, workList []boundedTriangle) uint32 {
	node.first = uint32(len(b.triIndices))
	node.count = uint32(len(workList))
	for _, item := range workList {
		b.triIndices = append(b.triIndices, item.index)
	}

	nodeIndex := len(b.nodes)
	b.nodes = append(b.nodes, node)
	b.stats.leafs++

	return uint32(nodeIndex)
}

// Evaluate evenly spaced split points along an axis and return the one with
// the lowest score or nil if no split yields two non-empty partitions.
func bestAxisSplit(workList []boundedTriangle, ax axis, axisMin, axisLen float32) *splitScore {
	var best *splitScore
	step := axisLen / float32(splitCandidates+1)
	for i := 1; i <= splitCandidates; i++ {
		splitPoint := axisMin + float32(i)*step
		lCount, rCount, score := scoreSplit(workList, ax, splitPoint)
		if best == nil || score < best.score {
			best = &splitScore{
				axis:       ax,
				splitPoint: splitPoint,
				leftCount:  lCount,
				rightCount: rCount,
				score:      score,
			}
		}
	}

	if best != nil && best.score == math.MaxFloat32 {
		return nil
	}
	return best
}

// Score a split using the surface area heuristic (lower is better):
//
// left count * left BBOX area + right count * right BBOX area.
//
// Splits that generate empty partitions get the worst possible score.
func scoreSplit(workList []boundedTriangle, ax axis, splitPoint float32) (leftCount, rightCount int, score float32) {
	lmin := types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	rmin := types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	lmax := types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	rmax := types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}

	for _, item := range workList {
		if item.center[ax] < splitPoint {
			leftCount++
			lmin = types.MinVec3(lmin, item.min)
			lmax = types.MaxVec3(lmax, item.max)
		} else {
			rightCount++
			rmin = types.MinVec3(rmin, item.min)
			rmax = types.MaxVec3(rmax, item.max)
		}
	}

	if leftCount == 0 || rightCount == 0 {
		return leftCount, rightCount, math.MaxFloat32
	}

	return leftCount, rightCount, float32(leftCount)*halfArea(lmin, lmax) + float32(rightCount)*halfArea(rmin, rmax)
}

// Score an unsplit worklist as count * BBOX area.
func scorePartition(workList []boundedTriangle) float32 {
	if len(workList) == 0 {
		return math.MaxFloat32
	}

	min := types.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	max := types.Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for _, item := range workList {
		min = types.MinVec3(min, item.min)
		max = types.MaxVec3(max, item.max)
	}
	return float32(len(workList)) * halfArea(min, max)
}

func halfArea(min, max types.Vec3) float32 {
	side := max.Sub(min)
	return side[0]*side[1] + side[1]*side[2] + side[0]*side[2]
}

// Find the closest triangle hit closer than maxDist. Returns the hit
// distance, the surface normal and the triangle index.
func (h *bvh) intersect(origin, dir types.Vec3, tris []scene.Triangle, maxDist float32) (float32, types.Vec3, uint32, bool) {
	invDir := types.Vec3{1 / dir[0], 1 / dir[1], 1 / dir[2]}

	var (
		stack    [64]uint32
		stackLen = 1
		hitDist  = maxDist
		normal   types.Vec3
		hitIndex uint32
		hit      bool
	)

	for stackLen > 0 {
		stackLen--
		node := &h.nodes[stack[stackLen]]
		if !intersectBox(origin, invDir, node.min, node.max, hitDist) {
			continue
		}

		if node.isLeaf() {
			for _, triIndex := range h.triIndices[node.first : node.first+node.count] {
				if t, n, ok := intersectTriangle(origin, dir, tris[triIndex]); ok && t < hitDist {
					hitDist, normal, hitIndex, hit = t, n, triIndex, true
				}
			}
			continue
		}

		if stackLen+2 > len(stack) {
			// Degenerate trees fall back to testing the leafs below this node
			h.intersectSubtree(node, origin, dir, tris, &hitDist, &normal, &hitIndex, &hit)
			continue
		}
		stack[stackLen] = node.left
		stack[stackLen+1] = node.right
		stackLen += 2
	}

	return hitDist, normal, hitIndex, hit
}

func (h *bvh) intersectSubtree(node *bvhNode, origin, dir types.Vec3, tris []scene.Triangle, hitDist *float32, normal *types.Vec3, hitIndex *uint32, hit *bool) {
	if node.isLeaf() {
		for _, triIndex := range h.triIndices[node.first : node.first+node.count] {
			if t, n, ok := intersectTriangle(origin, dir, tris[triIndex]); ok && t < *hitDist {
				*hitDist, *normal, *hitIndex, *hit = t, n, triIndex, true
			}
		}
		return
	}
	h.intersectSubtree(&h.nodes[node.left], origin, dir, tris, hitDist, normal, hitIndex, hit)
	h.intersectSubtree(&h.nodes[node.right], origin, dir, tris, hitDist, normal, hitIndex, hit)
}

// Slab test against an axis aligned box.
func intersectBox(origin, invDir, min, max types.Vec3, maxDist float32) bool {
	tMin, tMax := float32(0), maxDist
	for a := 0; a < 3; a++ {
		t0 := (min[a] - origin[a]) * invDir[a]
		t1 := (max[a] - origin[a]) * invDir[a]
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tMin {
			tMin = t0
		}
		if t1 < tMax {
			tMax = t1
		}
		if tMax < tMin {
			return false
		}
	}
	return true
}
