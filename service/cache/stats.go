// Copyright 2024 Basin Labs
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package cache

import "github.com/prometheus/client_golang/prometheus"

// Stats records the size of deltas and of the blobs they produce, on
// first insertion into the delta cache only. Two histograms per
// measurement mirror the reference's "regular" and "large" buckets.
type Stats interface {
	ObserveDeltaSize(n int)
	ObserveBlobSize(n int)
}

// PromStats is the default Stats implementation, registered once per
// process.
type PromStats struct {
	dsize      prometheus.Histogram
	dsizeLarge prometheus.Histogram
	fsize      prometheus.Histogram
	fsizeLarge prometheus.Histogram
}

// NewPromStats builds and registers the delta cache histograms. A nil
// reg registers against prometheus.DefaultRegisterer.
func NewPromStats(reg prometheus.Registerer) *PromStats {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	s := &PromStats{
		dsize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hgdps",
			Subsystem: "deltacache",
			Name:      "dsize_bytes",
			Help:      "Size in bytes of deltas inserted into the delta cache.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		}),
		dsizeLarge: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hgdps",
			Subsystem: "deltacache",
			Name:      "dsize_bytes_large",
			Help:      "Size in bytes of deltas inserted into the delta cache, wide buckets.",
			Buckets:   prometheus.ExponentialBuckets(1<<10, 4, 12),
		}),
		fsize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hgdps",
			Subsystem: "deltacache",
			Name:      "fsize_bytes",
			Help:      "Size in bytes of blobs produced by the delta cache.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		}),
		fsizeLarge: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hgdps",
			Subsystem: "deltacache",
			Name:      "fsize_bytes_large",
			Help:      "Size in bytes of blobs produced by the delta cache, wide buckets.",
			Buckets:   prometheus.ExponentialBuckets(1<<10, 4, 12),
		}),
	}

	reg.MustRegister(s.dsize, s.dsizeLarge, s.fsize, s.fsizeLarge)

	return s
}

// ObserveDeltaSize records the heap size of an inserted delta.
func (s *PromStats) ObserveDeltaSize(n int) {
	s.dsize.Observe(float64(n))
	s.dsizeLarge.Observe(float64(n))
}

// ObserveBlobSize records the length of a resolved blob.
func (s *PromStats) ObserveBlobSize(n int) {
	s.fsize.Observe(float64(n))
	s.fsizeLarge.Observe(float64(n))
}

// NopStats discards all measurements, useful in tests.
type NopStats struct{}

// ObserveDeltaSize is a no-op.
func (NopStats) ObserveDeltaSize(int) {}

// ObserveBlobSize is a no-op.
func (NopStats) ObserveBlobSize(int) {}
