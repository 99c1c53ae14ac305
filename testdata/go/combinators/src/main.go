package main

import "fmt"

func check(err error, n int) {
	if err != nil {
		fmt.Println(err)
	}
	if n == n {
		fmt.Println("same")
	}
	fmt.Printf("%d\n", n)
	fmt.Println(n)
}
