package benchmarks

import (
	"fmt"
	"strings"
)

// GetMicrobenchmarks returns the standard set of microbenchmarks.
// Each benchmark targets a specific class of the timing model.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		memorySequential(),
		functionCalls(),
		branchHeavy(),
		multiplyDivide(),
		floatKernel(),
		counterRead(),
		matrixMultiply2x2(),
	}
}

// GetCoreBenchmarks returns a minimal set of 3 core benchmarks for quick
// validation: a memory loop, a matrix multiply and branch-heavy code.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		memorySequential(),
		matrixMultiply2x2(),
		branchHeavy(),
	}
}

const exitSequence = `
        addi a7, zero, 93
        ecall
`

// 1. Arithmetic Sequential - ALU throughput with independent operations
func arithmeticSequential() Benchmark {
	var b strings.Builder
	regs := []string{"a0", "t0", "t1", "t2", "t3"}
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "        addi %s, %s, 1\n", regs[i%5], regs[i%5])
	}
	b.WriteString(exitSequence)

	return Benchmark{
		Name:         "arithmetic_sequential",
		Description:  "20 independent ADDI operations - measures ALU throughput",
		Source:       b.String(),
		ExpectedExit: 4,
	}
}

// 2. Dependency Chain - back-to-back dependent operations
func dependencyChain() Benchmark {
	return Benchmark{
		Name:         "dependency_chain",
		Description:  "20 dependent ADDIs (a0 = a0 + 1) - measures ALU latency",
		Source:       buildDependencyChain(20),
		ExpectedExit: 20,
	}
}

func buildDependencyChain(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString("        addi a0, a0, 1\n")
	}
	b.WriteString(exitSequence)
	return b.String()
}

// 3. Memory Sequential - fill an array, then sum it back
func memorySequential() Benchmark {
	return Benchmark{
		Name:        "memory_sequential",
		Description: "Store then load 16 consecutive words - measures D-cache locality",
		Source: `
        lui s0, 2               # array at 0x2000
        addi t0, zero, 0
        addi t1, zero, 16
fill:   slli t2, t0, 2
        add t2, s0, t2
        sw t0, 0(t2)
        addi t0, t0, 1
        blt t0, t1, fill
        addi t0, zero, 0
        addi a0, zero, 0
sum:    slli t2, t0, 2
        add t2, s0, t2
        lw t3, 0(t2)
        add a0, a0, t3
        addi t0, t0, 1
        blt t0, t1, sum
` + exitSequence,
		ExpectedExit: 120,
	}
}

// 4. Function Calls - jal/jalr call and return overhead
func functionCalls() Benchmark {
	return Benchmark{
		Name:        "function_calls",
		Description: "5 calls to a leaf function - measures jump latency",
		Source: `
        addi a0, zero, 0
        addi s1, zero, 5
call:   jal ra, bump
        addi s1, s1, -1
        bne s1, zero, call
        addi a7, zero, 93
        ecall
bump:   addi a0, a0, 3
        jalr zero, 0(ra)
`,
		ExpectedExit: 15,
	}
}

// 5. Branch Heavy - alternating taken and not-taken branches
func branchHeavy() Benchmark {
	return Benchmark{
		Name:        "branch_heavy",
		Description: "Count odd numbers below 20 - measures taken-branch penalty",
		Source: `
        addi t0, zero, 0
        addi t1, zero, 20
        addi a0, zero, 0
loop:   andi t2, t0, 1
        beq t2, zero, even
        addi a0, a0, 1
even:   addi t0, t0, 1
        blt t0, t1, loop
` + exitSequence,
		ExpectedExit: 10,
	}
}

// 6. Multiply Divide - M extension latencies
func multiplyDivide() Benchmark {
	return Benchmark{
		Name:        "multiply_divide",
		Description: "6! with MUL, then DIVU by 7 - measures multiply and divide latency",
		Source: `
        addi a0, zero, 1
        addi t0, zero, 1
        addi t1, zero, 6
fact:   mul a0, a0, t0
        addi t0, t0, 1
        bge t1, t0, fact
        addi t2, zero, 7
        divu a0, a0, t2
` + exitSequence,
		ExpectedExit: 102,
	}
}

// 7. Float Kernel - F extension arithmetic, divide and square root
func floatKernel() Benchmark {
	return Benchmark{
		Name:        "float_kernel",
		Description: "Sum 1.5*i for i=1..4, then sqrt(sum+1) - measures FP latencies",
		Source: `
        addi t0, zero, 3
        addi t1, zero, 2
        fcvt.s.w f1, t0
        fcvt.s.w f2, t1
        fdiv.s f3, f1, f2
        fcvt.s.w f4, zero
        addi t0, zero, 1
        addi t1, zero, 4
loop:   fcvt.s.w f5, t0
        fmul.s f6, f5, f3
        fadd.s f4, f4, f6
        addi t0, t0, 1
        bge t1, t0, loop
        addi t0, zero, 1
        fcvt.s.w f8, t0
        fadd.s f9, f4, f8
        fsqrt.s f7, f9
        fcvt.w.s a1, f7
        fcvt.w.s a0, f4
        add a0, a0, a1
` + exitSequence,
		ExpectedExit: 19,
	}
}

// 8. Counter Read - Zicsr instret sampled around a block
func counterRead() Benchmark {
	return Benchmark{
		Name:        "counter_read",
		Description: "instret delta across 3 ADDIs - measures CSR access",
		Source: `
        csrrs s0, 3074, zero
        addi t0, zero, 1
        addi t0, t0, 1
        addi t0, t0, 1
        csrrs s1, 3074, zero
        sub a0, s1, s0
` + exitSequence,
		ExpectedExit: 4,
	}
}

// 9. Matrix Multiply 2x2 - loads, multiplies and accumulates
func matrixMultiply2x2() Benchmark {
	return Benchmark{
		Name:         "matrix_multiply_2x2",
		Description:  "2x2 integer matrix multiply, exit with the sum of C - mixed load/mul/add",
		Source:       buildMatrixMultiply2x2(),
		ExpectedExit: 134, // C = [19 22; 43 50]
	}
}

func buildMatrixMultiply2x2() string {
	var b strings.Builder

	// A = [1 2; 3 4] at 0x2000, B = [5 6; 7 8] at 0x2010.
	b.WriteString("        lui s0, 2\n")
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&b, "        addi t0, zero, %d\n", i+1)
		fmt.Fprintf(&b, "        sw t0, %d(s0)\n", i*4)
	}

	b.WriteString("        addi a0, zero, 0\n")
	for row := 0; row < 2; row++ {
		for col := 0; col < 2; col++ {
			for k := 0; k < 2; k++ {
				aOff := (row*2 + k) * 4
				bOff := 16 + (k*2+col)*4
				fmt.Fprintf(&b, "        lw t1, %d(s0)\n", aOff)
				fmt.Fprintf(&b, "        lw t2, %d(s0)\n", bOff)
				b.WriteString("        mul t3, t1, t2\n")
				b.WriteString("        add a0, a0, t3\n")
			}
		}
	}

	b.WriteString(exitSequence)
	return b.String()
}
