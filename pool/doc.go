// Package pool recycles the fixed-size chunks that back inbound
// accumulators so steady-state traffic does not allocate per read.
// Author: momentics <momentics@gmail.com>
package pool
